// Package modem implements the asynchronous command/response channel to the
// cellular modem: AT-style command exchanges, raw payload writes, and the
// unsolicited result lines that arrive long after the command that caused
// them.
package modem

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/shared"
)

const pollInterval = 2 * time.Millisecond

// Channel wraps the modem serial port with line framing. All reads funnel
// through one internal buffer so command responses, unsolicited lines and
// raw body bytes cannot steal bytes from each other. Single-goroutine use
// only, like everything the scheduler owns.
type Channel struct {
	port link.Port
	log  logging.Logger
	rx   []byte
	tmp  []byte
}

func NewChannel(port link.Port, log logging.Logger) *Channel {
	return &Channel{
		port: port,
		log:  log.With("module", "modem"),
		tmp:  make([]byte, 256),
	}
}

// fill performs one bounded read from the port into the internal buffer.
func (c *Channel) fill() error {
	n, err := c.port.Read(c.tmp)
	if err != nil {
		return fmt.Errorf("modem read: %w", err)
	}
	if n > 0 {
		c.rx = append(c.rx, c.tmp[:n]...)
	}
	return nil
}

// PollLine returns the next complete line if one is buffered, without
// blocking. Empty lines (bare CRLF separators) are swallowed.
func (c *Channel) PollLine() (string, bool) {
	for {
		if err := c.fill(); err != nil {
			return "", false
		}
		idx := bytes.IndexByte(c.rx, '\n')
		if idx < 0 {
			return "", false
		}
		line := strings.TrimRight(string(c.rx[:idx]), "\r")
		c.rx = c.rx[idx+1:]
		if line == "" {
			continue
		}
		return line, true
	}
}

// AwaitLine blocks up to timeout for the next complete line.
func (c *Channel) AwaitLine(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if line, ok := c.PollLine(); ok {
			return line, nil
		}
		if time.Now().After(deadline) {
			return "", shared.ErrorNoPrompt
		}
		time.Sleep(pollInterval)
	}
}

// WaitFor discards lines until one equals token or the timeout expires.
func (c *Channel) WaitFor(ctx context.Context, token string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		line, err := c.AwaitLine(ctx, time.Until(deadline))
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == token {
			return nil
		}
	}
	return shared.ErrorNoPrompt
}

// Command writes an AT command and collects response lines until the
// terminal "OK" or "ERROR". The command's own echo is skipped. The bounded
// wait is a deliberate short stall of the cooperative loop.
func (c *Channel) Command(ctx context.Context, cmd string, timeout time.Duration) ([]string, error) {
	if _, err := c.port.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, fmt.Errorf("write %q: %w", cmd, err)
	}

	var collected []string
	deadline := time.Now().Add(timeout)
	for {
		line, err := c.AwaitLine(ctx, time.Until(deadline))
		if err != nil {
			return collected, fmt.Errorf("%q: %w", cmd, err)
		}
		switch {
		case line == cmd: // echo
		case line == "OK":
			return collected, nil
		case line == "ERROR" || strings.HasPrefix(line, "+CME ERROR") || strings.HasPrefix(line, "+CMS ERROR"):
			return collected, fmt.Errorf("%q: %s: %w", cmd, line, shared.ErrorCommand)
		default:
			collected = append(collected, line)
		}
	}
}

// ReadRaw returns buffered payload bytes, refilling once from the port. It
// never blocks; (0, nil) means nothing was available.
func (c *Channel) ReadRaw(p []byte) (int, error) {
	if len(c.rx) == 0 {
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.rx)
	c.rx = c.rx[n:]
	return n, nil
}

// WriteRaw sends payload bytes as-is.
func (c *Channel) WriteRaw(p []byte) (int, error) {
	return c.port.Write(p)
}
