package controller

import (
	"sync"
	"time"

	"github.com/mlevkov/camlink/internal/receive"
	"github.com/mlevkov/camlink/internal/relay"
)

// Status is a point-in-time snapshot of what the controller last did.
type Status struct {
	// last finished reception
	LastOutcome  string
	LastFile     string
	LastReceived int64
	Retried      bool

	// last settled upload
	LastUploadFile   string
	LastUploadStatus int
	UploadInFlight   bool

	// modem real-time clock, as reported by the last refresh
	Clock string

	UpdatedAt time.Time
}

// Telemetry is the loop's status side channel. The loop writes it from its
// own goroutine; readers (console, future status endpoint) take snapshots.
type Telemetry struct {
	mu sync.Mutex
	st Status
}

func NewTelemetry() *Telemetry { return &Telemetry{} }

func (t *Telemetry) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

func (t *Telemetry) NoteReceive(outcome receive.State, sess receive.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.LastOutcome = outcome.String()
	t.st.LastFile = sess.Path
	t.st.LastReceived = sess.BytesReceived
	t.st.Retried = sess.Retried
	t.st.UpdatedAt = time.Now()
}

func (t *Telemetry) NoteUpload(sess *relay.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sess == nil {
		t.st.UpdatedAt = time.Now()
		return
	}
	t.st.LastUploadFile = sess.RemoteFilename
	t.st.LastUploadStatus = sess.HTTPStatus
	t.st.UploadInFlight = sess.Status == relay.StatusStreaming
	t.st.UpdatedAt = time.Now()
}

func (t *Telemetry) NoteClock(clock string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Clock = clock
	t.st.UpdatedAt = time.Now()
}
