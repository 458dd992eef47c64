package supplier

import (
	"sync"
	"time"

	"github.com/alitto/pond"
)

// ErrSchedulerClosed is returned by Schedule once the scheduler has begun
// shutting down. Workers treat it as benign: it is expected after seek or
// Close tears the scheduler down out from under an in-flight tick.
var ErrSchedulerClosed = newStateError("schedule", "scheduler is shut down")

// Scheduler bounds the number of partition ticks that may run concurrently
// to fetchThreads. Delay is implemented with time.AfterFunc; the pond pool
// only bounds concurrency of whatever fires.
type Scheduler struct {
	mu     sync.Mutex
	pool   *pond.WorkerPool
	timers map[uint64]*time.Timer
	nextID uint64
	closed bool
}

// NewScheduler creates a scheduler backed by a pond pool sized threads.
func NewScheduler(threads int) *Scheduler {
	if threads < 1 {
		threads = 1
	}
	return &Scheduler{
		pool:   pond.New(threads, 0),
		timers: make(map[uint64]*time.Timer),
	}
}

// Schedule arms task to run after delay, bounded by the scheduler's pool
// concurrency. It returns ErrSchedulerClosed if the scheduler has already
// begun shutting down; callers (partition workers) treat that as benign,
// since it only happens once a reseek or Close has replaced/torn down the
// scheduler.
func (s *Scheduler) Schedule(task func(), delay time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}

	id := s.nextID
	s.nextID++

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		closed := s.closed
		pool := s.pool
		s.mu.Unlock()

		if closed {
			return
		}
		pool.Submit(task)
	})
	s.timers[id] = timer
	s.mu.Unlock()

	return nil
}

// Shutdown stops accepting new work, cancels timers that have not yet
// fired, and waits up to wait for the pool to drain tasks already
// submitted. If the pool has not drained within wait, it is force-stopped.
func (s *Scheduler) Shutdown(wait time.Duration) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	pool := s.pool
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		pool.StopAndWait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wait):
		pool.Stop()
	}
}

// ForceShutdown stops accepting new work, cancels pending timers, and stops
// the pool immediately without waiting for in-flight tasks.
func (s *Scheduler) ForceShutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	pool := s.pool
	s.mu.Unlock()

	pool.Stop()
}

// replaceScheduler tears down old (bounded by wait, then forced) and
// returns a fresh scheduler sized threads. Used only by the reseek
// protocol's scheduler-shutdown fence.
func replaceScheduler(old *Scheduler, threads int, wait time.Duration) *Scheduler {
	if old != nil {
		old.Shutdown(wait)
	}
	return NewScheduler(threads)
}
