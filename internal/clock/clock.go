// ABOUTME: Wall clock abstraction for position anchors and fade timing
// ABOUTME: System reads time.Now; Manual is advanced explicitly by tests and offline renders
package clock

import (
	"sync"
	"time"
)

// Clock is a source of wall-clock time
type Clock interface {
	Now() time.Time
}

// System is the real clock
type System struct{}

// Now returns time.Now
func (System) Now() time.Time { return time.Now() }

// Manual is a clock that only moves when told to
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual creates a manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
