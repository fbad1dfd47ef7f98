package server

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. Callbacks must run on the
// dispatch loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// loopScheduler posts expired callbacks onto the dispatch loop. Stop and the
// posted callback both run on the loop, so a stopped timer whose callback
// is already queued still does nothing.
type loopScheduler struct {
	post func(func()) bool
}

type loopTimer struct {
	timer   *time.Timer
	stopped bool
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			f()
		})
	})
	return t
}

func (t *loopTimer) Stop() bool {
	active := !t.stopped
	t.stopped = true
	t.timer.Stop()
	return active
}
