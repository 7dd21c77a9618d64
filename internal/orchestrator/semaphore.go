package orchestrator

import (
	"context"
	"sync"
)

// semaphore is a context-aware concurrency limiter bounding worker fan-out.
type semaphore struct {
	mu       sync.Mutex
	cond     *sync.Cond
	limit    int
	acquired int
}

// newSemaphore creates a semaphore with the given limit. Values below one are
// clamped to one so dispatch always makes progress.
func newSemaphore(limit int) *semaphore {
	if limit < 1 {
		limit = 1
	}
	s := &semaphore{limit: limit}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Acquire blocks until a slot is available or the context is cancelled.
func (s *semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Broadcast on cancellation so blocked waiters wake up and can return
	// the context error instead of waiting forever.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.cond.Broadcast()
		case <-done:
		}
	}()

	for s.acquired >= s.limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}

	// The wake may have been from cancellation rather than a release.
	if err := ctx.Err(); err != nil {
		return err
	}

	s.acquired++
	return nil
}

// Release frees a slot and signals one waiting goroutine.
func (s *semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquired > 0 {
		s.acquired--
	}
	s.cond.Signal()
}
