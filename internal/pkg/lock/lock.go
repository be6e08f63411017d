// Package lock serializes engine events per user.
package lock

import (
	"context"
	"sync"
	"time"
)

// userSlot is a one-token semaphore shared by everyone waiting on a user.
type userSlot struct {
	token chan struct{}
	refs  int
}

// UserLock holds one slot per user so that a user's events run one at a time
// while different users proceed in parallel. Slots are dropped once nobody
// holds or waits on them.
type UserLock struct {
	mu    sync.Mutex
	slots map[string]*userSlot
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{slots: make(map[string]*userSlot)}
}

func (ul *UserLock) acquireRef(userID string) *userSlot {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s, ok := ul.slots[userID]
	if !ok {
		s = &userSlot{token: make(chan struct{}, 1)}
		ul.slots[userID] = s
	}
	s.refs++
	return s
}

func (ul *UserLock) releaseRef(userID string, s *userSlot) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(ul.slots, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID string) {
	s := ul.acquireRef(userID)
	s.token <- struct{}{}
}

// Unlock releases the user's lock. Unlocking a user that is not locked is a
// no-op.
func (ul *UserLock) Unlock(userID string) {
	ul.mu.Lock()
	s, ok := ul.slots[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-s.token:
		ul.releaseRef(userID, s)
	default:
	}
}

// TryLock acquires the lock only if it is free.
func (ul *UserLock) TryLock(userID string) bool {
	s := ul.acquireRef(userID)
	select {
	case s.token <- struct{}{}:
		return true
	default:
		ul.releaseRef(userID, s)
		return false
	}
}

// LockContext waits for the lock until ctx is done or timeout passes.
// A non-positive timeout waits on ctx alone.
func (ul *UserLock) LockContext(ctx context.Context, userID string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s := ul.acquireRef(userID)
	select {
	case s.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseRef(userID, s)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID string, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the user's lock, giving up with
// ErrLockTimeout when the lock is not free within timeout.
func (ul *UserLock) WithLockContext(ctx context.Context, userID string, timeout time.Duration, fn func() error) error {
	if err := ul.LockContext(ctx, userID, timeout); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

// IsLocked reports whether someone holds the user's lock.
// The answer may be stale as soon as it returns.
func (ul *UserLock) IsLocked(userID string) bool {
	ul.mu.Lock()
	s, ok := ul.slots[userID]
	ul.mu.Unlock()
	return ok && len(s.token) == 1
}

// Len returns the number of users with a live slot.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.slots)
}
