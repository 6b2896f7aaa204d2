// Package wire defines the byte-level shape of the camera↔controller serial
// protocol: the transfer header line, the handshake tokens, the capture
// trigger and the chunk sizing. It is pure encode/decode logic with no I/O.
//
// The chunk stream itself carries no checksum or framing delimiter; integrity
// relies entirely on byte-count accounting. Callers must not exceed that
// scope: a miscounted byte corrupts the file with nothing but an eventual
// total-length mismatch to surface it.
package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkSize is the fixed maximum payload size of one chunk. It is a protocol
// constant, not negotiated; the final chunk of a transfer may be shorter.
const ChunkSize = 256

// Handshake tokens exchanged as newline-terminated lines on the link.
const (
	TokenReady       = "READY"
	TokenAck         = "ACK"
	TokenDone        = "DONE"
	TokenNackTimeout = "NACK_TIMEOUT"
)

// TriggerKeyword starts a capture request line: "foto [width] [quality]".
const TriggerKeyword = "foto"

// Defaults applied when a trigger omits or mangles its arguments.
const (
	DefaultCaptureWidth   = 1024
	DefaultCaptureQuality = 5
)

// ErrInvalidHeader reports a header line with no field separator or a
// non-positive size. It is a recoverable protocol error: the receiver drops
// the line and returns to idle.
var ErrInvalidHeader = fmt.Errorf("invalid header")

// Header declares the filename and total byte length of an upcoming
// transfer. It is sent once per file as a single '\n'-terminated line and is
// immutable for the rest of the session.
type Header struct {
	Filename string
	Size     int64
}

// EncodeHeader renders h as "<filename>|<size>\n".
func EncodeHeader(h Header) []byte {
	return fmt.Appendf(nil, "%s|%d\n", h.Filename, h.Size)
}

// DecodeHeader parses a header line. The split is on the first '|';
// everything before it is the filename. Trailing CR/LF is ignored.
func DecodeHeader(line string) (Header, error) {
	line = strings.TrimRight(line, "\r\n")

	name, sizeField, ok := strings.Cut(line, "|")
	if !ok {
		return Header{}, ErrInvalidHeader
	}

	size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 10, 64)
	if err != nil || size <= 0 {
		return Header{}, ErrInvalidHeader
	}

	return Header{Filename: name, Size: size}, nil
}

// Trigger is a request for a new capture, optionally constraining the
// resized width and the 1–10 quality scale.
type Trigger struct {
	Width   int
	Quality int
}

// DefaultTrigger returns a trigger with the stock width and quality.
func DefaultTrigger() Trigger {
	return Trigger{Width: DefaultCaptureWidth, Quality: DefaultCaptureQuality}
}

// EncodeTrigger renders t as a "foto <width> <quality>\n" line.
func EncodeTrigger(t Trigger) []byte {
	return fmt.Appendf(nil, "%s %d %d\n", TriggerKeyword, t.Width, t.Quality)
}

// ParseTrigger reports whether line is a capture trigger and returns the
// requested parameters. Malformed numeric arguments fall back to defaults
// rather than rejecting the trigger.
func ParseTrigger(line string) (Trigger, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || !strings.EqualFold(parts[0], TriggerKeyword) {
		return Trigger{}, false
	}

	t := DefaultTrigger()
	if len(parts) >= 2 {
		if w, err := strconv.Atoi(parts[1]); err == nil {
			t.Width = w
		}
	}
	if len(parts) >= 3 {
		if q, err := strconv.Atoi(parts[2]); err == nil {
			t.Quality = q
		}
	}
	return t, true
}
