package input

import (
	"sync"

	"github.com/ayusman/winkmouse/internal/blink"
)

// MockSink records clicks for tests.
type MockSink struct {
	mu     sync.Mutex
	clicks []blink.Click
	err    error
}

// NewMockSink creates an empty MockSink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// SetError makes every following Click return err after recording the click.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Click records c.
func (m *MockSink) Click(c blink.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, c)
	return m.err
}

// Clicks returns a copy of the recorded clicks.
func (m *MockSink) Clicks() []blink.Click {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]blink.Click, len(m.clicks))
	copy(out, m.clicks)
	return out
}

// Count returns how many clicks of side c were recorded.
func (m *MockSink) Count(c blink.Click) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, got := range m.clicks {
		if got == c {
			n++
		}
	}
	return n
}
