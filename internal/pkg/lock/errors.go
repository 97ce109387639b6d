package lock

import "errors"

// ErrLockTimeout is returned by WithLock when the user's lock is still held
// by another request after the timeout.
var ErrLockTimeout = errors.New("user lock acquisition timeout")
