package models

import "time"

// LoginAttempt is a forensic record of one login attempt. The account
// aggregate owns the lockout decision; this history only feeds audits and
// expires after the retention window.
type LoginAttempt struct {
	ID            string    `db:"id"`
	AccountID     *string   `db:"account_id"`
	Email         string    `db:"email"`
	IPAddress     string    `db:"ip_address"`
	UserAgent     string    `db:"user_agent"`
	AttemptTime   time.Time `db:"attempt_time"`
	Success       bool      `db:"success"`
	FailureReason *string   `db:"failure_reason"`
	ExpiresAt     time.Time `db:"expires_at"`
}

// Failure reasons recorded on LoginAttempt
const (
	FailureInvalidCredentials = "invalid_credentials"
	FailureAccountLocked      = "account_locked"
	FailureAccountBlocked     = "account_blocked"
)
