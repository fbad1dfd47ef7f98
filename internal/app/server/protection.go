package server

import (
	"context"
	"sync"
	"time"

	"github.com/trisbattle/arena/pkg/logging"
	"github.com/trisbattle/arena/pkg/utils"
	"go.uber.org/zap"
)

// Protector toggles scale-in protection for this process.
type Protector interface {
	UpdateServerProtection(ctx context.Context, enabled bool) error
}

// protection keeps the task protected while any room is live, and for a
// grace period after the last one goes away. Calls to the protector happen
// on a worker goroutine so the dispatch loop never waits on AWS.
type protection struct {
	protector Protector
	grace     time.Duration
	timer     *utils.Timer
	wake      chan struct{}

	rooms   int
	desired bool
	mu      sync.Mutex
}

// newProtection returns nil when there is nothing to protect. A nil
// *protection ignores every call.
func newProtection(protector Protector, grace time.Duration) *protection {
	if protector == nil {
		return nil
	}
	timer := utils.NewTimer(grace)
	timer.Stop()
	return &protection{
		protector: protector,
		grace:     grace,
		timer:     timer,
		wake:      make(chan struct{}, 1),
	}
}

// roomsChanged is called with the number of live rooms after every
// registry change.
func (p *protection) roomsChanged(rooms int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = rooms
	if rooms > 0 {
		p.timer.Stop()
		if !p.desired {
			p.desired = true
			p.notify()
		}
		return
	}
	if p.desired {
		p.timer.Reset(p.grace)
	}
}

func (p *protection) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *protection) run(ctx context.Context) {
	if p == nil {
		return
	}
	applied := false
	for {
		select {
		case <-ctx.Done():
			p.timer.Stop()
			if applied {
				p.apply(context.Background(), false)
			}
			return
		case <-p.wake:
		case <-p.timer.C():
			p.mu.Lock()
			if p.rooms == 0 {
				p.desired = false
			}
			p.mu.Unlock()
		}

		p.mu.Lock()
		desired := p.desired
		p.mu.Unlock()
		if desired == applied {
			continue
		}
		if p.apply(ctx, desired) {
			applied = desired
		}
	}
}

func (p *protection) apply(ctx context.Context, enabled bool) bool {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := p.protector.UpdateServerProtection(ctx, enabled); err != nil {
		logging.Error("failed to update server protection", zap.Bool("enabled", enabled), zap.Error(err))
		return false
	}
	logging.Info("server protection updated",
		zap.Bool("enabled", enabled),
		zap.Duration("grace_remaining", p.timer.TimeRemaining()),
	)
	return true
}
