package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountInactive  = errors.New("account is inactive")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrAccountDeleted   = errors.New("account is deleted")
	ErrAccountLocked    = errors.New("account is temporarily locked")

	// Session errors
	ErrNoOpenSession      = errors.New("no open session")
	ErrSessionAlreadyOpen = errors.New("a session is already open")

	// Feature ledger errors
	ErrInvalidIncrement = errors.New("invalid feature usage increment")

	// ErrConcurrentModification is returned by the storage layer when a
	// conditional write loses against another writer. Callers re-read and retry.
	ErrConcurrentModification = errors.New("account was modified concurrently")
)

// UnknownFeatureError reports a feature name outside the closed feature set
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("unknown feature %q", e.Name)
}

// UnknownAuditActionError reports an audit action outside the closed action set
type UnknownAuditActionError struct {
	Action string
}

func (e *UnknownAuditActionError) Error() string {
	return fmt.Sprintf("unknown audit action %q", e.Action)
}

// InvalidValueError reports a value outside one of the closed enumerations
// (status, plan, role, device type, activity kind)
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// ValidationError collects record-level validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Errors[0]
}
