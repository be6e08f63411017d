package lock

import "errors"

// ErrLockTimeout is returned when a user's lock is not free in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")
