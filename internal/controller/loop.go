// Package controller hosts the single cooperative scheduler loop that owns
// every state transition on the controller: an in-progress reception always
// wins, then modem replies, then operator commands, then periodic work.
package controller

import (
	"context"
	"io"
	"time"

	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/receive"
	"github.com/mlevkov/camlink/internal/relay"
	"github.com/mlevkov/camlink/internal/wire"
)

// Operator command tokens, single characters on the local console.
const (
	CmdUpload        = 'u' // upload the last stored file now
	CmdCapture       = 'f' // request a new capture
	CmdClock         = 't' // refresh the time base from the modem
	CmdCaptureUpload = 'b' // request a capture, then upload it when done
)

// Receiver is the slice of the receive machine the loop drives.
type Receiver interface {
	Active() bool
	Poll(ctx context.Context, now time.Time) error
	NoteTrigger(t wire.Trigger)
	TakeOutcome() (receive.State, receive.Session, bool)
}

// Uploader is the slice of the relay the loop drives.
type Uploader interface {
	Start(ctx context.Context, path string) error
	HandleLine(ctx context.Context, line string) bool
	InFlight() bool
	Last() *relay.Session
}

// LineSource yields complete unsolicited modem lines without blocking.
type LineSource interface {
	PollLine() (string, bool)
}

// TimeSource answers the operator's time-base refresh.
type TimeSource interface {
	Clock(ctx context.Context) (string, error)
}

// FileIndex locates the latest upload-eligible stored file.
type FileIndex interface {
	Last() (string, bool)
}

// Deps are the collaborators the loop schedules.
type Deps struct {
	Receiver   Receiver
	Uploader   Uploader
	ModemLines LineSource
	Clock      TimeSource
	Files      FileIndex
	// Link carries capture triggers back to the camera device.
	Link io.Writer
	// Ops delivers operator command tokens; at most one is serviced per
	// iteration.
	Ops <-chan byte
}

// Timing is the loop's periodic schedule.
type Timing struct {
	Tick                time.Duration
	AutoCaptureInterval time.Duration
	TelemetryInterval   time.Duration
}

func (t *Timing) withDefaults() {
	if t.Tick <= 0 {
		t.Tick = 20 * time.Millisecond
	}
	if t.AutoCaptureInterval <= 0 {
		t.AutoCaptureInterval = time.Hour
	}
	if t.TelemetryInterval <= 0 {
		t.TelemetryInterval = 30 * time.Second
	}
}

type Loop struct {
	deps   Deps
	timing Timing
	log    logging.Logger

	// pending-work flags, reset at session boundaries
	sendAfterReceive bool
	uploadRequested  bool

	lastAuto      time.Time
	lastTelemetry time.Time

	telemetry *Telemetry
}

func NewLoop(deps Deps, timing Timing, log logging.Logger) *Loop {
	timing.withDefaults()
	return &Loop{
		deps:      deps,
		timing:    timing,
		log:       log.With("module", "scheduler"),
		telemetry: NewTelemetry(),
	}
}

// Telemetry exposes the loop's status side channel.
func (l *Loop) Telemetry() *Telemetry { return l.telemetry }

// Run ticks the loop until the context is canceled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.timing.Tick)
	defer ticker.Stop()

	l.log.Info(ctx, "scheduler running", "tick", l.timing.Tick)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tickNow := <-ticker.C:
			l.Iterate(ctx, tickNow)
		}
	}
}

// Iterate runs one pass of the priority ladder. Exported so tests can drive
// the loop with synthetic clock readings.
func (l *Loop) Iterate(ctx context.Context, now time.Time) {
	if l.lastAuto.IsZero() {
		l.lastAuto = now
		l.lastTelemetry = now
	}

	// (1)/(2): reception. One Poll both notices fresh header bytes while
	// idle and services an in-progress transfer. While a transfer is
	// active nothing below runs.
	if err := l.deps.Receiver.Poll(ctx, now); err != nil {
		l.log.Error(ctx, "receive error", "error", err)
	}
	if l.deps.Receiver.Active() {
		return
	}

	if outcome, sess, ok := l.deps.Receiver.TakeOutcome(); ok {
		l.telemetry.NoteReceive(outcome, sess)
		if outcome == receive.StateDone && l.sendAfterReceive {
			l.uploadRequested = true
		}
		// session boundary: ephemeral flags never outlive the session
		l.sendAfterReceive = false
	}

	// (3a) pending upload
	if l.uploadRequested && !l.deps.Uploader.InFlight() {
		l.uploadRequested = false
		if path, ok := l.deps.Files.Last(); ok {
			if err := l.deps.Uploader.Start(ctx, path); err != nil {
				l.log.Error(ctx, "upload not started", "path", path, "error", err)
			}
		} else {
			l.log.Warn(ctx, "upload requested but nothing stored")
		}
	}

	// (3b) asynchronous modem replies
	for {
		line, ok := l.deps.ModemLines.PollLine()
		if !ok {
			break
		}
		if !l.deps.Uploader.HandleLine(ctx, line) {
			l.log.Debug(ctx, "unhandled modem line", "line", line)
		}
	}

	// (3c) one operator command
	select {
	case c := <-l.deps.Ops:
		l.handleCommand(ctx, c)
	default:
	}

	// (3d) periodic work
	if now.Sub(l.lastAuto) >= l.timing.AutoCaptureInterval {
		l.lastAuto = now
		l.requestCapture(ctx, wire.DefaultTrigger())
	}
	if now.Sub(l.lastTelemetry) >= l.timing.TelemetryInterval {
		l.lastTelemetry = now
		l.telemetry.NoteUpload(l.deps.Uploader.Last())
	}
}

func (l *Loop) handleCommand(ctx context.Context, c byte) {
	switch c {
	case CmdUpload:
		l.uploadRequested = true
	case CmdCapture:
		l.requestCapture(ctx, wire.DefaultTrigger())
	case CmdCaptureUpload:
		l.requestCapture(ctx, wire.DefaultTrigger())
		l.sendAfterReceive = true
	case CmdClock:
		if l.deps.Clock == nil {
			return
		}
		ts, err := l.deps.Clock.Clock(ctx)
		if err != nil {
			l.log.Warn(ctx, "time base refresh failed", "error", err)
			return
		}
		l.telemetry.NoteClock(ts)
		l.log.Info(ctx, "time base refreshed", "clock", ts)
	default:
		l.log.Warn(ctx, "unknown operator command", "cmd", string(c))
	}
}

func (l *Loop) requestCapture(ctx context.Context, t wire.Trigger) {
	if _, err := l.deps.Link.Write(wire.EncodeTrigger(t)); err != nil {
		l.log.Error(ctx, "capture trigger failed", "error", err)
		return
	}
	l.deps.Receiver.NoteTrigger(t)
	l.log.Info(ctx, "capture requested", "width", t.Width, "quality", t.Quality)
}
