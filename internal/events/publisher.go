// Package events streams committed audit entries to downstream consumers
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/courier/internal/models"
)

// AuditEvent is the wire form of one committed audit entry
type AuditEvent struct {
	AccountID string             `json:"account_id"`
	Seq       int64              `json:"seq"`
	Action    models.AuditAction `json:"action"`
	Details   *string            `json:"details,omitempty"`
	IPAddress *string            `json:"ip_address,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewAuditEvent wraps an entry of the given account
func NewAuditEvent(accountID string, e models.AuditEntry) AuditEvent {
	return AuditEvent{
		AccountID: accountID,
		Seq:       e.Seq,
		Action:    e.Action,
		Details:   e.Details,
		IPAddress: e.IPAddress,
		Timestamp: e.Timestamp,
	}
}

// Publisher delivers audit events. Events of one account are delivered in
// the order given.
type Publisher interface {
	Publish(ctx context.Context, events ...AuditEvent) error
	Close() error
}

// LoggingPublisher writes events to the structured log; used when no broker
// is configured
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, events ...AuditEvent) error {
	for _, e := range events {
		p.logger.DebugContext(ctx, "audit event",
			slog.String("account_id", e.AccountID),
			slog.Int64("seq", e.Seq),
			slog.String("action", string(e.Action)),
			slog.Time("timestamp", e.Timestamp),
		)
	}
	return nil
}

func (p *LoggingPublisher) Close() error {
	return nil
}
