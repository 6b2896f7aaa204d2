package modem

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mlevkov/camlink/internal/shared"
)

// actionPrefix marks the unsolicited result line of an HTTP action command.
const actionPrefix = "+HTTPACTION:"

// readPrefix marks the length line that precedes read-back body bytes.
const readPrefix = "+HTTPREAD:"

// downloadPrompt is emitted by the modem when it is ready to take the
// declared number of body bytes.
const downloadPrompt = "DOWNLOAD"

// ActionResult is the asynchronous outcome of an HTTP action: the method
// that was issued, the carrier-reported status code and the response body
// length. It arrives as "+HTTPACTION: <method>,<status>,<length>".
type ActionResult struct {
	Method int
	Status int
	Length int
}

// ParseActionResult reports whether line is an HTTP action result.
func ParseActionResult(line string) (ActionResult, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), actionPrefix)
	if !ok {
		return ActionResult{}, false
	}
	fields := strings.Split(strings.TrimSpace(rest), ",")
	if len(fields) != 3 {
		return ActionResult{}, false
	}
	var vals [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return ActionResult{}, false
		}
		vals[i] = v
	}
	return ActionResult{Method: vals[0], Status: vals[1], Length: vals[2]}, true
}

// HTTP methods as the modem's action command numbers them.
const (
	MethodGet  = 0
	MethodPost = 1
)

// HTTP drives the modem's built-in HTTP service over a Channel. Every call
// is gated on the command/response exchange; only the action result is
// asynchronous.
type HTTP struct {
	ch         *Channel
	cmdTimeout time.Duration
}

func NewHTTP(ch *Channel, cmdTimeout time.Duration) *HTTP {
	if cmdTimeout <= 0 {
		cmdTimeout = 5 * time.Second
	}
	return &HTTP{ch: ch, cmdTimeout: cmdTimeout}
}

// Terminate tears down any previous HTTP service session. It is idempotent:
// an ERROR from a modem with no open session is ignored.
func (h *HTTP) Terminate(ctx context.Context) {
	_, _ = h.ch.Command(ctx, "AT+HTTPTERM", h.cmdTimeout)
}

// Init opens a fresh HTTP service session.
func (h *HTTP) Init(ctx context.Context) error {
	if _, err := h.ch.Command(ctx, "AT+HTTPINIT", h.cmdTimeout); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrorChannelInit, err)
	}
	return nil
}

// SetParam sets one HTTP service parameter (URL, CONTENT, CID, ...).
func (h *HTTP) SetParam(ctx context.Context, key, value string) error {
	cmd := fmt.Sprintf("AT+HTTPPARA=%q,%q", key, value)
	if _, err := h.ch.Command(ctx, cmd, h.cmdTimeout); err != nil {
		return err
	}
	return nil
}

// BeginData declares the body length and the window (ms) the modem keeps its
// input open, then waits for the DOWNLOAD prompt. After it returns, the
// caller streams exactly size bytes with WriteBody and seals with EndData.
func (h *HTTP) BeginData(ctx context.Context, size int64, window time.Duration) error {
	cmd := fmt.Sprintf("AT+HTTPDATA=%d,%d", size, window.Milliseconds())
	if _, err := h.ch.port.Write([]byte(cmd + "\r\n")); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	if err := h.ch.WaitFor(ctx, downloadPrompt, h.cmdTimeout); err != nil {
		return fmt.Errorf("await %s: %w", downloadPrompt, err)
	}
	return nil
}

// WriteBody sends raw body bytes into the open data window.
func (h *HTTP) WriteBody(p []byte) (int, error) {
	return h.ch.WriteRaw(p)
}

// EndData waits for the OK that closes the data window.
func (h *HTTP) EndData(ctx context.Context) error {
	if err := h.ch.WaitFor(ctx, "OK", h.cmdTimeout); err != nil {
		return fmt.Errorf("data window not closed: %w", err)
	}
	return nil
}

// Post issues the HTTP action command for a POST. The modem acknowledges
// with OK immediately; the actual result arrives later as an unsolicited
// "+HTTPACTION:" line that the scheduler's modem reader must pick up.
func (h *HTTP) Post(ctx context.Context) error {
	cmd := fmt.Sprintf("AT+HTTPACTION=%d", MethodPost)
	if _, err := h.ch.Command(ctx, cmd, h.cmdTimeout); err != nil {
		return err
	}
	return nil
}

// ReadBody issues the read-back command after a successful action and
// accumulates up to want bytes, or whatever arrived when the bounded wait
// elapses — partial bodies are returned, not discarded.
func (h *HTTP) ReadBody(ctx context.Context, want int, timeout time.Duration) ([]byte, error) {
	if _, err := h.ch.port.Write([]byte("AT+HTTPREAD\r\n")); err != nil {
		return nil, fmt.Errorf("write read-back: %w", err)
	}

	deadline := time.Now().Add(timeout)

	// Length preamble; the modem may report fewer bytes than announced.
	avail := want
	for {
		line, err := h.ch.AwaitLine(ctx, time.Until(deadline))
		if err != nil {
			return nil, fmt.Errorf("read-back preamble: %w", err)
		}
		if rest, ok := strings.CutPrefix(line, readPrefix); ok {
			if v, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && v < avail {
				avail = v
			}
			break
		}
		// skip the echo and other noise
	}

	body := make([]byte, 0, avail)
	buf := make([]byte, 256)
	for len(body) < avail {
		if err := ctx.Err(); err != nil {
			return body, err
		}
		if time.Now().After(deadline) {
			return body, nil // partial body accepted as-is
		}
		n, err := h.ch.ReadRaw(buf)
		if err != nil {
			return body, err
		}
		if n == 0 {
			time.Sleep(pollInterval)
			continue
		}
		if len(body)+n > avail {
			n = avail - len(body)
		}
		body = append(body, buf[:n]...)
	}

	// terminal OK for the read-back exchange; best effort
	_ = h.ch.WaitFor(ctx, "OK", time.Until(deadline))
	return body, nil
}

// Clock queries the modem's real-time clock and returns the raw quoted
// timestamp from the +CCLK response.
func (h *HTTP) Clock(ctx context.Context) (string, error) {
	lines, err := h.ch.Command(ctx, "AT+CCLK?", h.cmdTimeout)
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line, "+CCLK:"); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	return "", shared.ErrorNoPrompt
}
