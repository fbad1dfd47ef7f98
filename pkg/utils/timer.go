package utils

import (
	"sync"
	"time"
)

// Timer is a resettable one-shot timer that remembers its deadline.
type Timer struct {
	timer    *time.Timer
	deadline time.Time
	mu       sync.Mutex
}

func NewTimer(d time.Duration) *Timer {
	return &Timer{
		timer:    time.NewTimer(d),
		deadline: time.Now().Add(d),
	}
}

func (t *Timer) C() <-chan time.Time {
	return t.timer.C
}

// Reset moves the deadline to d from now. A zero duration fires immediately.
func (t *Timer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer.Reset(d)
	t.deadline = time.Now().Add(d)
}

func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer.Stop()
}

func (t *Timer) TimeRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining := time.Until(t.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}
