package account

import (
	"fmt"
	"time"

	"github.com/BradenHooton/courier/internal/models"
)

// IsAccountLocked reports whether a lock window is open at now.
// Every lock-sensitive operation must consult this predicate.
func IsAccountLocked(a *models.Account, now time.Time) bool {
	return a.Lock.LockUntil != nil && a.Lock.LockUntil.After(now)
}

// RecordFailedAttempt counts a failed login.
//
// A failure after an expired lock starts a fresh window at attempt 1. A
// failure inside an open lock still counts but never moves LockUntil, so the
// lock length is fixed when it first trips.
func (m *Machine) RecordFailedAttempt(a *models.Account, ip *string, now time.Time) *models.Account {
	next := a.Clone()
	next.Metrics.FailedLoginAttempts++

	if next.Lock.LockUntil != nil && !next.Lock.LockUntil.After(now) {
		next.Lock.LoginAttempts = 1
		next.Lock.LockUntil = nil
		appendEntry(next, models.AuditActionLoginFailed, m.attemptDetails(1), ip, now)
		return next
	}

	locked := IsAccountLocked(a, now)
	next.Lock.LoginAttempts++
	appendEntry(next, models.AuditActionLoginFailed, m.attemptDetails(next.Lock.LoginAttempts), ip, now)

	if next.Lock.LoginAttempts >= m.policy.MaxFailedAttempts && !locked {
		until := now.Add(m.policy.LockDuration)
		next.Lock.LockUntil = &until
		appendEntry(next, models.AuditActionAccountLocked,
			"locked until "+until.UTC().Format(time.RFC3339), ip, now)
	}

	return next
}

func (m *Machine) attemptDetails(attempt int) string {
	return fmt.Sprintf("invalid credentials (attempt %d of %d)", attempt, m.policy.MaxFailedAttempts)
}

// RecordSuccessfulLogin clears the failure window and counts the login.
// It fails with ErrAccountLocked, leaving the account untouched, while a lock
// window is open.
func (m *Machine) RecordSuccessfulLogin(a *models.Account, ip *string, now time.Time) (*models.Account, error) {
	if IsAccountLocked(a, now) {
		return a, models.ErrAccountLocked
	}

	next := a.Clone()
	next.Lock.LoginAttempts = 0
	next.Lock.LockUntil = nil
	next.Metrics.LastLogin = advance(next.Metrics.LastLogin, now)
	next.Metrics.LoginCount++
	appendEntry(next, models.AuditActionLogin, "login succeeded", ip, now)

	return next, nil
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at issuedAt. Compared at second precision, as tokens carry seconds.
func ChangedPasswordAfter(a *models.Account, issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < a.PasswordChangedAt.Unix()
}

// ChangePassword stores a new password hash
func (m *Machine) ChangePassword(a *models.Account, passwordHash string, ip *string, now time.Time) *models.Account {
	next := a.Clone()
	next.PasswordHash = passwordHash
	changed := now
	next.PasswordChangedAt = &changed
	next.Metrics.PasswordChanges++
	next.Metrics.LastPasswordChange = advance(next.Metrics.LastPasswordChange, now)
	appendEntry(next, models.AuditActionPasswordChanged, "", ip, now)
	return next
}
