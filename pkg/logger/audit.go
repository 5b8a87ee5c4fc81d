package logger

import (
	"context"
	"log/slog"
	"sort"
)

// Audit record categories carried in the audit_type attribute
const (
	AuditTypeAuth     = "auth"
	AuditTypePassword = "password"
	AuditTypeAccount  = "account"
)

// AuditEvent is one credential event of an account or of an unknown email
type AuditEvent struct {
	EventType     string
	AccountID     string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger mirrors security events onto the structured log under the
// "audit" message so they can be routed separately from request logs.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records a login, logout or lockout. Emails are masked.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := optional(nil,
		"account_id", event.AccountID,
		"email", maskIfSet(event.Email),
		"ip_address", event.IPAddress,
		"user_agent", event.UserAgent,
		"failure_reason", event.FailureReason,
	)
	al.emit(ctx, AuditTypeAuth, event.EventType, event.Success, withMetadata(attrs, event.Metadata))
}

// LogPasswordChange records a password change and whether it went through
func (al *AuditLogger) LogPasswordChange(ctx context.Context, accountID, ipAddress string, success bool) {
	attrs := optional([]slog.Attr{slog.String("account_id", accountID)}, "ip_address", ipAddress)
	al.emit(ctx, AuditTypePassword, "password_change", success, attrs)
}

// LogAccountAction records one committed audit log entry of an account
func (al *AuditLogger) LogAccountAction(ctx context.Context, action, accountID, ipAddress string, seq int64, metadata map[string]string) {
	attrs := []slog.Attr{slog.String("account_id", accountID), slog.Int64("seq", seq)}
	attrs = optional(attrs, "ip_address", ipAddress)
	al.emit(ctx, AuditTypeAccount, action, true, withMetadata(attrs, metadata))
}

func (al *AuditLogger) emit(ctx context.Context, auditType, eventType string, success bool, attrs []slog.Attr) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	head := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.Bool("success", success),
	}
	al.logger.LogAttrs(ctx, level, "audit", append(head, attrs...)...)
}

// optional appends each key/value pair whose value is non-empty
func optional(attrs []slog.Attr, pairs ...string) []slog.Attr {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			attrs = append(attrs, slog.String(pairs[i], pairs[i+1]))
		}
	}
	return attrs
}

// withMetadata appends metadata in key order so records are stable
func withMetadata(attrs []slog.Attr, metadata map[string]string) []slog.Attr {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, metadata[k]))
	}
	return attrs
}

func maskIfSet(email string) string {
	if email == "" {
		return ""
	}
	return SanitizedEmail(email)
}
