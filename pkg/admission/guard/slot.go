package guard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	gfcontext "github.com/vnykmshr/admit/pkg/common/context"
)

// slot is the admission state of one resource key. held, peak and waiters are
// guarded by mu; the counters are atomics so reading stats never contends with
// admission.
type slot struct {
	key    string
	budget int

	mu      sync.Mutex
	held    int
	peak    int
	waiters []chan struct{}

	admitted   atomic.Int64
	rejected   atomic.Int64
	violations atomic.Int64
}

func newSlot(key string, budget int) *slot {
	return &slot{
		key:     key,
		budget:  budget,
		waiters: make([]chan struct{}, 0),
	}
}

// acquire takes one permit, waiting up to wait for one to be handed over.
// It returns false with a nil error when the wait elapsed, and false with the
// context error when ctx ended first.
func (s *slot) acquire(ctx context.Context, wait time.Duration) (bool, error) {
	if gfcontext.IsCanceled(ctx) {
		return false, ctx.Err()
	}

	s.mu.Lock()

	// Released permits go straight to waiters, so a free permit means nobody is queued.
	if s.held < s.budget {
		s.grantLocked()
		s.mu.Unlock()
		return true, nil
	}

	if wait <= 0 {
		s.mu.Unlock()
		return false, nil
	}

	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	waitCtx, cancel := gfcontext.WithTimeoutOrCancel(ctx, wait)
	defer cancel()

	select {
	case <-ready:
		return true, nil
	case <-waitCtx.Done():
	}

	if s.removeWaiter(ready) {
		return false, gfcontext.CauseOf(ctx)
	}

	// The permit was handed over while the wait was ending.
	if err := gfcontext.CauseOf(ctx); err != nil {
		s.release()
		return false, err
	}
	return true, nil
}

// grantLocked marks one more permit as held. Must be called with s.mu held.
func (s *slot) grantLocked() {
	s.held++
	if s.held > s.peak {
		s.peak = s.held
	}
}

// release returns one permit. The permit passes to the oldest waiter if there
// is one, otherwise the held count drops. It reports false without touching
// any state when no permit is held.
func (s *slot) release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held == 0 {
		return false
	}

	if len(s.waiters) > 0 {
		next := s.waiters[0]
		s.waiters[0] = nil
		s.waiters = s.waiters[1:]
		close(next)
		return true
	}

	s.held--
	return true
}

// removeWaiter drops ready from the queue. It reports false if ready was
// already granted a permit.
func (s *slot) removeWaiter(ready chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.waiters {
		if w == ready {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// occupancy returns the held and waiting counts.
func (s *slot) occupancy() (held, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held, len(s.waiters)
}

func (s *slot) stats() Stats {
	s.mu.Lock()
	held, waiting, peak := s.held, len(s.waiters), s.peak
	s.mu.Unlock()

	return Stats{
		Key:        s.key,
		Budget:     s.budget,
		Held:       held,
		Waiting:    waiting,
		Peak:       peak,
		Admitted:   s.admitted.Load(),
		Rejected:   s.rejected.Load(),
		Violations: s.violations.Load(),
	}
}
