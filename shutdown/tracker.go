package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTrackerClosed is returned for operations started after shutdown began.
	ErrTrackerClosed = errors.New("shutdown: not accepting new operations")
	// ErrWaitTimeout means in-flight operations outlived the drain timeout.
	ErrWaitTimeout = errors.New("shutdown: operations did not complete in time")
)

// OperationTracker counts in-flight requests so shutdown can drain them.
type OperationTracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	active atomic.Int64
	closed bool
}

// Start registers an operation. It returns false once Close was called.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active.Add(1)
	return true
}

// Done marks an operation finished.
func (t *OperationTracker) Done() {
	t.active.Add(-1)
	t.wg.Done()
}

// Close rejects further Start calls.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Wait blocks until all operations finish or timeout elapses.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// ActiveCount is the number of operations in flight.
func (t *OperationTracker) ActiveCount() int64 {
	return t.active.Load()
}
