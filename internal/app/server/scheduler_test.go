package server

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postedQueue struct {
	events []func()
	mu     sync.Mutex
}

func (q *postedQueue) post(ev func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	return true
}

func (q *postedQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *postedQueue) runAll() {
	q.mu.Lock()
	events := q.events
	q.events = nil
	q.mu.Unlock()
	for _, ev := range events {
		ev()
	}
}

func TestLoopSchedulerPostsCallback(t *testing.T) {
	queue := &postedQueue{}
	scheduler := loopScheduler{post: queue.post}
	fired := 0

	timer := scheduler.AfterFunc(time.Millisecond, func() { fired++ })
	require.Eventually(t, func() bool { return queue.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, fired)

	queue.runAll()
	assert.Equal(t, 1, fired)
	assert.False(t, timer.Stop())
}

func TestLoopSchedulerStopAfterPost(t *testing.T) {
	queue := &postedQueue{}
	scheduler := loopScheduler{post: queue.post}
	fired := false

	timer := scheduler.AfterFunc(time.Millisecond, func() { fired = true })
	require.Eventually(t, func() bool { return queue.len() == 1 }, time.Second, time.Millisecond)

	// Already queued on the loop, but stopped before it ran.
	assert.True(t, timer.Stop())
	queue.runAll()
	assert.False(t, fired)
	assert.False(t, timer.Stop())
}

func TestLoopSchedulerStopBeforeExpiry(t *testing.T) {
	queue := &postedQueue{}
	scheduler := loopScheduler{post: queue.post}

	timer := scheduler.AfterFunc(time.Hour, func() {})

	assert.True(t, timer.Stop())
	assert.Equal(t, 0, queue.len())
}

func TestLoopSchedulerOnServerLoop(t *testing.T) {
	h := newHarness(t)
	h.startLoop()
	fired := make(chan struct{})

	loopScheduler{post: h.srv.post}.AfterFunc(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not run on the loop")
	}
}
