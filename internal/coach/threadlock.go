package coach

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// threadLocks serializes turns per thread. The backend forbids submitting a
// new turn while a prior turn on the same thread is still executing, so a
// second caller blocks here with a bounded wait instead of hitting the
// backend's conflict error. Entries are refcounted and dropped from the map
// once no caller holds or waits on them, so the map does not grow with the
// number of threads ever seen.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

func (t *threadLocks) checkout(threadID string) *threadLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock := t.locks[threadID]
	if lock == nil {
		lock = &threadLock{}
		t.locks[threadID] = lock
	}
	lock.refs++
	return lock
}

func (t *threadLocks) checkin(threadID string, lock *threadLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(t.locks, threadID)
	}
}

// acquire takes the per-thread lock, giving up after timeout or when ctx is
// cancelled. The returned release function must be called exactly once.
func (t *threadLocks) acquire(ctx context.Context, threadID string, timeout time.Duration) (func(), error) {
	lock := t.checkout(threadID)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return func() {
			lock.mu.Unlock()
			t.checkin(threadID, lock)
		}, nil
	case <-timer.C:
		go t.abandon(threadID, lock, done)
		slog.Warn("timed out waiting for thread lock", "thread_id", threadID, "timeout", timeout)
		return nil, fmt.Errorf("thread %s is busy with a prior turn", threadID)
	case <-ctx.Done():
		go t.abandon(threadID, lock, done)
		return nil, ctx.Err()
	}
}

// abandon waits out a pending Lock that the caller gave up on, then releases
// both the mutex and the map entry so neither is orphaned.
func (t *threadLocks) abandon(threadID string, lock *threadLock, done chan struct{}) {
	<-done
	lock.mu.Unlock()
	t.checkin(threadID, lock)
}
