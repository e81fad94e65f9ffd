package gpio

import "sync"

// Mock is an in-memory Backend used by tests and by dry-run sessions when no
// live hardware is reachable. It records the last level written to each
// configured pin so tests can assert on pin history without real hardware.
type Mock struct {
	mu     sync.Mutex
	levels map[int]bool
	log    []MockWrite
}

// MockWrite is one recorded Write call, kept for tests that assert on pin
// toggle sequences rather than just final state.
type MockWrite struct {
	Pin  int
	High bool
}

// NewMock returns a ready-to-use in-memory backend.
func NewMock() *Mock {
	return &Mock{levels: make(map[int]bool)}
}

var _ Backend = (*Mock)(nil)

func (m *Mock) ConfigureOutput(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.levels[pin]; ok {
		return &ErrPinInUse{Pin: pin}
	}
	m.levels[pin] = false
	return nil
}

func (m *Mock) Write(pin int, high bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = high
	m.log = append(m.log, MockWrite{Pin: pin, High: high})
}

func (m *Mock) Close() error { return nil }

// Level reports the last level written to pin (false if never written).
func (m *Mock) Level(pin int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin]
}

// History returns a copy of every Write call recorded so far, in order.
func (m *Mock) History() []MockWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockWrite, len(m.log))
	copy(out, m.log)
	return out
}
