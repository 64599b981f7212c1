package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs tick at a fixed interval on its own goroutine until stopped.
// At most one loop is active: Start cancels and joins the previous loop first.
type Scheduler struct {
	interval time.Duration
	tick     func(time.Time)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	loops  atomic.Int32
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(interval time.Duration, tick func(time.Time)) *Scheduler {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Scheduler{interval: interval, tick: tick}
}

// Start begins ticking until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.loops.Add(1)

	go s.run(ctx, done)
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.loops.Add(-1)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			// Prefer cancellation over a tick that became ready at the same time.
			if ctx.Err() != nil {
				return
			}
			s.tick(t)
		}
	}
}
