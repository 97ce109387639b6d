// Package lock provides per-user locking so that one process never runs two
// ballot submissions or bonus grants for the same user at once.
//
// The lock only narrows contention inside a single process. Cross-process
// correctness comes from the database constraints.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// userSlot is a one-token semaphore with a reference count so idle slots can
// be dropped from the map.
type userSlot struct {
	sem      chan struct{}
	refCount int
}

// UserLock provides per-user locking keyed by user id.
type UserLock struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*userSlot
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{slots: make(map[uuid.UUID]*userSlot)}
}

// acquireSlot returns the slot for userID, creating it if needed, and
// registers one more holder or waiter.
func (ul *UserLock) acquireSlot(userID uuid.UUID) *userSlot {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s, ok := ul.slots[userID]
	if !ok {
		s = &userSlot{sem: make(chan struct{}, 1)}
		ul.slots[userID] = s
	}
	s.refCount++
	return s
}

// releaseSlot drops one holder or waiter and forgets the slot when unused.
func (ul *UserLock) releaseSlot(userID uuid.UUID, s *userSlot) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s.refCount--
	if s.refCount == 0 {
		delete(ul.slots, userID)
	}
}

// Lock blocks until the user's lock is held or ctx is done.
func (ul *UserLock) Lock(ctx context.Context, userID uuid.UUID) error {
	s := ul.acquireSlot(userID)
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseSlot(userID, s)
		return ctx.Err()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID uuid.UUID) bool {
	s := ul.acquireSlot(userID)
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		ul.releaseSlot(userID, s)
		return false
	}
}

// Unlock releases the user's lock. Unlocking a lock that is not held is a no-op.
func (ul *UserLock) Unlock(userID uuid.UUID) {
	ul.mu.Lock()
	s, ok := ul.slots[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-s.sem:
		ul.releaseSlot(userID, s)
	default:
	}
}

// WithLock runs fn while holding the user's lock, giving up with
// ErrLockTimeout if it cannot be acquired within timeout.
func (ul *UserLock) WithLock(ctx context.Context, userID uuid.UUID, timeout time.Duration, fn func() error) error {
	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ul.Lock(lockCtx, userID); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)

	return fn()
}

// IsLocked reports whether the user's lock is currently held.
// This is a point-in-time check.
func (ul *UserLock) IsLocked(userID uuid.UUID) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	s, ok := ul.slots[userID]
	return ok && len(s.sem) == 1
}

// Size returns the number of users with a held or awaited lock.
func (ul *UserLock) Size() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.slots)
}
