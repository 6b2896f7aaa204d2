package receive

import "time"

// State enumerates the receive machine's lifecycle. Done and TimedOut are
// terminal outcomes: the machine itself rests in Idle between transfers and
// reports the outcome of the last session separately.
type State int

const (
	StateIdle State = iota
	StateAwaitingHeader
	StateReceiving
	StateDone
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingHeader:
		return "awaiting_header"
	case StateReceiving:
		return "receiving"
	case StateDone:
		return "done"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Session is the state of one file transfer. Exactly one session is live at
// a time; it is owned by the Machine and exposed to callers only as a copy.
type Session struct {
	Path          string
	TotalSize     int64
	BytesReceived int64
	LastByte      time.Time
	Retried       bool
}

// IdleFor returns how long the link has been silent. It is the timeout
// computation used by the polling loop, exposed as a pure function so tests
// never need a real clock.
func IdleFor(now, lastByte time.Time) time.Duration {
	return now.Sub(lastByte)
}
