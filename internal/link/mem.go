package link

import (
	"bytes"
	"sync"
)

// MemPort is an in-memory Port end. Reads drain this end's inbound buffer
// and return (0, nil) when it is empty, mimicking a serial port with a read
// timeout. Writes land in the peer's inbound buffer.
type MemPort struct {
	mu   sync.Mutex
	rx   bytes.Buffer
	peer *MemPort
}

// Loopback returns two MemPorts wired back to back, suitable for exercising
// both protocol ends in one test.
func Loopback() (*MemPort, *MemPort) {
	a := &MemPort{}
	b := &MemPort{}
	a.peer = b
	b.peer = a
	return a, b
}

func (m *MemPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rx.Len() == 0 {
		return 0, nil
	}
	return m.rx.Read(p)
}

func (m *MemPort) Write(p []byte) (int, error) {
	m.peer.mu.Lock()
	defer m.peer.mu.Unlock()
	return m.peer.rx.Write(p)
}

// Buffered reports how many inbound bytes are waiting on this end.
func (m *MemPort) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rx.Len()
}
