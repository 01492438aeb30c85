package mock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides an interface for time operations to enable testing
// without relying on real time. This allows tests to simulate token
// expiry and refresh scheduling without waiting for actual time to pass.
type Clock interface {
	// Now returns the current time according to this clock
	Now() time.Time

	// After returns a channel that receives the clock's time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// After waits for real time to pass.
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type clockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// MockClock implements Clock with a controllable time value.
// Channels returned by After fire only when Advance or Set moves the clock
// past their deadline.
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
	waiters []*clockWaiter
}

// NewMockClock creates a new mock clock initialized to the given time.
// If t is zero, the clock is initialized to the current time.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Now()
	}
	return &MockClock{current: t}
}

// Now returns the current time according to this mock clock.
func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// After registers a waiter that fires once the clock reaches now+d.
// Non-positive durations fire immediately.
func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- m.current
		return ch
	}
	m.waiters = append(m.waiters, &clockWaiter{deadline: m.current.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(m.current.Add(d))
}

// Set sets the clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(t)
}

func (m *MockClock) setLocked(t time.Time) {
	m.current = t

	sort.Slice(m.waiters, func(i, j int) bool {
		return m.waiters[i].deadline.Before(m.waiters[j].deadline)
	})

	pending := m.waiters[:0]
	for _, w := range m.waiters {
		if !w.deadline.After(t) {
			w.ch <- t
			continue
		}
		pending = append(pending, w)
	}
	m.waiters = pending
}

// Waiters returns the number of After channels that have not fired yet.
func (m *MockClock) Waiters() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.waiters)
}

// NextDeadline returns the earliest pending deadline.
func (m *MockClock) NextDeadline() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var next time.Time
	for _, w := range m.waiters {
		if next.IsZero() || w.deadline.Before(next) {
			next = w.deadline
		}
	}
	return next, !next.IsZero()
}

// BlockUntilWaiters waits in real time until at least n waiters are pending.
// It returns false if that does not happen within timeout.
func (m *MockClock) BlockUntilWaiters(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.Waiters() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return m.Waiters() >= n
}
