// Package locking serializes writers of the same account so optimistic
// version conflicts stay rare. Locks are keyed per account; different
// accounts never contend.
package locking

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when the context ends before the lock is held
var ErrLockTimeout = errors.New("timed out waiting for account lock")

// Locker acquires a named mutual-exclusion lock. The returned release func
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// AccountKey is the lock key for one account
func AccountKey(accountID string) string {
	return "courier:account-lock:" + accountID
}
