// Package link abstracts the point-to-point byte link between devices.
//
// A Port behaves like a serial device configured with a short read timeout:
// Read returns whatever bytes are already buffered, and (0, nil) when nothing
// arrived within the port's own small wait. That contract is what lets the
// receive path drain bytes without ever blocking on more than is available.
package link

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Port is a bidirectional byte link.
type Port interface {
	io.Reader
	io.Writer
}

// pollInterval is how long line helpers sleep between empty reads.
const pollInterval = 2 * time.Millisecond

// ErrLineTimeout reports that no complete line arrived within the wait.
var ErrLineTimeout = errors.New("timed out waiting for line")

// ReadLine accumulates bytes from p until a '\n' arrives or the timeout
// expires, and returns the line with the trailing CR/LF stripped. It reads
// one byte at a time so it never consumes bytes past the newline.
func ReadLine(ctx context.Context, p Port, timeout time.Duration) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", ErrLineTimeout
		}

		n, err := p.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			time.Sleep(pollInterval)
			continue
		}
		if buf[0] == '\n' {
			return strings.TrimRight(sb.String(), "\r"), nil
		}
		sb.WriteByte(buf[0])
	}
}

// WaitFor reads lines from p until one equals expected (after trimming
// whitespace) or the timeout expires. Other lines are discarded, matching
// the sender-side handshake where status tokens may interleave with noise.
func WaitFor(ctx context.Context, p Port, expected string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		line, err := ReadLine(ctx, p, remaining)
		if err != nil {
			return false
		}
		if strings.TrimSpace(line) == expected {
			return true
		}
	}
	return false
}

// WriteLine writes s followed by '\n'.
func WriteLine(p Port, s string) error {
	_, err := p.Write([]byte(s + "\n"))
	return err
}
