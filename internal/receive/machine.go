// Package receive drives storage writes from the live serial byte stream.
//
// The machine is polled from the scheduler loop: each Poll drains whatever
// bytes are buffered on the link, never blocking for more, and compares the
// elapsed silence against the inactivity window. Worst-case timeout detection
// latency is therefore one loop iteration.
package receive

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/store"
	"github.com/mlevkov/camlink/internal/wire"
)

// maxHeaderLen bounds how much garbage the header buffer accumulates before
// the machine gives up on seeing a newline.
const maxHeaderLen = 512

// Config holds the timeout policy. Both windows are explicit so tests and
// deployments can tune poll granularity against link latency.
type Config struct {
	// IdleTimeout is the inactivity window: silence longer than this while
	// bytesReceived < totalSize abandons the session.
	IdleTimeout time.Duration
	// RetryGrace is the fixed pause between emitting NACK_TIMEOUT and
	// re-issuing the capture trigger on the single automatic retry.
	RetryGrace time.Duration
}

// DefaultConfig returns the stock timeout policy.
func DefaultConfig() Config {
	return Config{
		IdleTimeout: 30 * time.Second,
		RetryGrace:  2 * time.Second,
	}
}

// Machine is the receive-side state machine. It owns the single live
// Session and the open file handle; the handle is opened in exactly one
// place (entering Receiving) and closed in exactly one of two (completion or
// timeout). Not safe for concurrent use; the scheduler goroutine is the only
// caller.
type Machine struct {
	port  link.Port
	store *store.Store
	log   logging.Logger
	cfg   Config

	state     State
	sess      Session
	file      *os.File
	headerBuf []byte
	readBuf   []byte

	// trigger is the most recent capture trigger line, re-sent to request
	// the one automatic retransmission. retryUsed survives the session reset
	// so the retransmitted attempt cannot re-arm itself.
	trigger   []byte
	retryUsed bool

	outcome     State
	outcomeSess Session
}

// NewMachine returns an idle machine writing received files through st.
func NewMachine(port link.Port, st *store.Store, log logging.Logger, cfg Config) *Machine {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if cfg.RetryGrace <= 0 {
		cfg.RetryGrace = DefaultConfig().RetryGrace
	}
	return &Machine{
		port:    port,
		store:   st,
		log:     log.With("module", "receive"),
		cfg:     cfg,
		readBuf: make([]byte, wire.ChunkSize),
		trigger: wire.EncodeTrigger(wire.DefaultTrigger()),
	}
}

// State returns the current machine state.
func (m *Machine) State() State { return m.state }

// Active reports whether a transfer is in progress. While active, the
// scheduler must keep all lower-priority work parked.
func (m *Machine) Active() bool {
	return m.state == StateAwaitingHeader || m.state == StateReceiving
}

// Session returns a copy of the live session.
func (m *Machine) Session() Session { return m.sess }

// NoteTrigger records the capture trigger most recently sent to the camera
// side. A fresh trigger starts a new logical file, so the automatic-retry
// budget resets.
func (m *Machine) NoteTrigger(t wire.Trigger) {
	m.trigger = wire.EncodeTrigger(t)
	m.retryUsed = false
}

// TakeOutcome returns and clears the terminal outcome of the last session
// (StateDone or StateTimedOut) together with its final session snapshot.
func (m *Machine) TakeOutcome() (State, Session, bool) {
	if m.outcome != StateDone && m.outcome != StateTimedOut {
		return StateIdle, Session{}, false
	}
	o, s := m.outcome, m.outcomeSess
	m.outcome = StateIdle
	return o, s, true
}

// Poll advances the machine by one scheduler iteration using the supplied
// wall-clock reading. It never blocks waiting for bytes that have not
// arrived; the only deliberate stall is the fixed retry grace period.
func (m *Machine) Poll(ctx context.Context, now time.Time) error {
	switch m.state {
	case StateIdle, StateAwaitingHeader:
		return m.pollHeader(ctx, now)
	case StateReceiving:
		return m.pollBody(ctx, now)
	default:
		m.state = StateIdle
		return nil
	}
}

// pollHeader accumulates header bytes one at a time (so no payload byte is
// consumed past the newline) and opens the session when a line completes.
func (m *Machine) pollHeader(ctx context.Context, now time.Time) error {
	one := make([]byte, 1)
	for {
		n, err := m.port.Read(one)
		if err != nil {
			return fmt.Errorf("link read: %w", err)
		}
		if n == 0 {
			break
		}

		if m.state == StateIdle {
			m.state = StateAwaitingHeader
			m.headerBuf = m.headerBuf[:0]
			m.sess = Session{LastByte: now}
		}
		m.sess.LastByte = now

		if one[0] == '\n' {
			return m.openSession(ctx, string(m.headerBuf), now)
		}
		m.headerBuf = append(m.headerBuf, one[0])
		if len(m.headerBuf) > maxHeaderLen {
			m.log.Warn(ctx, "discarding oversized header line", "len", len(m.headerBuf))
			m.reset()
			return nil
		}
	}

	// A header that never completes is bounded by the same inactivity window.
	if m.state == StateAwaitingHeader && IdleFor(now, m.sess.LastByte) > m.cfg.IdleTimeout {
		m.log.Warn(ctx, "header never completed, dropping", "buffered", len(m.headerBuf))
		m.reset()
	}
	return nil
}

func (m *Machine) openSession(ctx context.Context, line string, now time.Time) error {
	hdr, err := wire.DecodeHeader(line)
	if err != nil {
		// Malformed input is discarded and ignored: log only, no retry.
		m.log.Warn(ctx, "invalid header, back to idle", "line", line)
		m.reset()
		return nil
	}

	f, path, err := m.store.Create(hdr.Filename)
	if err != nil {
		m.reset()
		return fmt.Errorf("open destination for %q: %w", hdr.Filename, err)
	}

	m.file = f
	m.sess = Session{
		Path:      path,
		TotalSize: hdr.Size,
		LastByte:  now,
		Retried:   m.retryUsed,
	}
	m.state = StateReceiving

	if err := link.WriteLine(m.port, wire.TokenReady); err != nil {
		m.closeFile()
		m.reset()
		return fmt.Errorf("write READY: %w", err)
	}
	m.log.Info(ctx, "receiving", "path", path, "size", hdr.Size, "retry", m.sess.Retried)
	return nil
}

// pollBody is the throughput path: drain whatever is buffered, one ACK per
// drained read, then check the inactivity window.
func (m *Machine) pollBody(ctx context.Context, now time.Time) error {
	for {
		remaining := m.sess.TotalSize - m.sess.BytesReceived
		want := int(remaining)
		if want > wire.ChunkSize {
			want = wire.ChunkSize
		}

		n, err := m.port.Read(m.readBuf[:want])
		if err != nil {
			return fmt.Errorf("link read: %w", err)
		}
		if n == 0 {
			break
		}

		if _, err := m.file.Write(m.readBuf[:n]); err != nil {
			path := m.sess.Path
			m.closeFile()
			m.reset()
			return fmt.Errorf("write %s: %w", path, err)
		}
		m.sess.BytesReceived += int64(n)
		m.sess.LastByte = now

		if err := link.WriteLine(m.port, wire.TokenAck); err != nil {
			return fmt.Errorf("write ACK: %w", err)
		}

		if m.sess.BytesReceived == m.sess.TotalSize {
			return m.finish(ctx)
		}
	}

	if IdleFor(now, m.sess.LastByte) > m.cfg.IdleTimeout {
		m.timeout(ctx)
	}
	return nil
}

func (m *Machine) finish(ctx context.Context) error {
	m.closeFile()
	m.store.MarkDone(m.sess.Path)
	m.outcome = StateDone
	m.outcomeSess = m.sess
	m.retryUsed = false

	err := link.WriteLine(m.port, wire.TokenDone)
	m.log.Info(ctx, "transfer complete", "path", m.sess.Path, "bytes", m.sess.BytesReceived)
	m.reset()
	if err != nil {
		return fmt.Errorf("write DONE: %w", err)
	}
	return nil
}

func (m *Machine) timeout(ctx context.Context) {
	m.closeFile()
	m.outcome = StateTimedOut
	m.outcomeSess = m.sess

	_ = link.WriteLine(m.port, wire.TokenNackTimeout)
	m.log.Warn(ctx, "receive timed out",
		"path", m.sess.Path,
		"received", m.sess.BytesReceived,
		"total", m.sess.TotalSize,
		"retry_used", m.retryUsed)
	m.reset()

	if !m.retryUsed {
		// Exactly one automatic retransmission per logical file: pause for
		// the grace period, then re-issue the original trigger.
		m.retryUsed = true
		time.Sleep(m.cfg.RetryGrace)
		if _, err := m.port.Write(m.trigger); err != nil {
			m.log.Error(ctx, "re-trigger failed", "error", err)
		}
	}
}

func (m *Machine) closeFile() {
	if m.file != nil {
		_ = m.file.Close()
		m.file = nil
	}
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.headerBuf = m.headerBuf[:0]
}
