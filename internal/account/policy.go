// Package account holds the state transitions of the account aggregate:
// credential guard, session tracker, feature usage ledger and audit log.
//
// Every transition is a pure function of (account, input, now). It clones the
// account, applies the change to the clone and returns it; the caller owns
// persistence. Rule violations return the input untouched with an error.
package account

import "time"

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockDuration      = 2 * time.Hour
	MaxAdminNoteLength       = 5000
)

// Policy configures the credential guard
type Policy struct {
	MaxFailedAttempts int
	LockDuration      time.Duration
}

// DefaultPolicy locks for 2 hours after 5 failures
func DefaultPolicy() Policy {
	return Policy{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		LockDuration:      DefaultLockDuration,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxFailedAttempts <= 0 {
		p.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if p.LockDuration <= 0 {
		p.LockDuration = DefaultLockDuration
	}
	return p
}

// Machine applies transitions under a fixed policy
type Machine struct {
	policy Policy
}

// NewMachine creates a Machine; zero policy fields fall back to defaults
func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy.normalized()}
}

// Policy returns the effective policy
func (m *Machine) Policy() Policy {
	return m.policy
}

// advance moves a forward-only timestamp to now unless it is already later
func advance(ts *time.Time, now time.Time) *time.Time {
	if ts != nil && ts.After(now) {
		return ts
	}
	t := now
	return &t
}
