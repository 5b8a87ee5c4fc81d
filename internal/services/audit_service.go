package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/events"
	"github.com/BradenHooton/courier/internal/models"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

// AuditEntryStore reads persisted audit entries of one account in append order
type AuditEntryStore interface {
	Query(ctx context.Context, accountID string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error)
	CountByAction(ctx context.Context, accountID string) (map[models.AuditAction]int64, error)
}

// AuditService fans committed audit entries out to the security log and the
// event stream, and serves audit trail queries.
type AuditService struct {
	store       AuditEntryStore
	publisher   events.Publisher
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuditEntryStore, publisher events.Publisher, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:       store,
		publisher:   publisher,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Dispatch is called after a write commits. Failures are logged and never
// returned: the entries are already durable in the account aggregate.
func (s *AuditService) Dispatch(ctx context.Context, accountID string, entries []models.AuditEntry) {
	if len(entries) == 0 {
		return
	}

	batch := make([]events.AuditEvent, 0, len(entries))
	for _, e := range entries {
		// Dual-write: immediate slog output
		var ip string
		if e.IPAddress != nil {
			ip = *e.IPAddress
		}
		var metadata map[string]string
		if e.Details != nil {
			metadata = map[string]string{"details": *e.Details}
		}
		s.auditLogger.LogAccountAction(ctx, string(e.Action), accountID, ip, e.Seq, metadata)

		batch = append(batch, events.NewAuditEvent(accountID, e))
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, batch...); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit events",
			slog.String("account_id", accountID),
			slog.Int("count", len(batch)),
			slog.Any("error", err),
		)
	}
}

// Trail returns the account's audit entries matching filter, oldest first
func (s *AuditService) Trail(ctx context.Context, accountID string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.Query(ctx, accountID, filter, limit, offset)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to query audit trail",
			slog.String("account_id", accountID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to query audit trail: %w", models.ErrInternalServer)
	}
	return entries, nil
}

// Summary tallies the account's audit entries per action
func (s *AuditService) Summary(ctx context.Context, accountID string) (map[models.AuditAction]int64, error) {
	counts, err := s.store.CountByAction(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to summarize audit trail",
			slog.String("account_id", accountID),
			slog.Any("error", err),
		)
		return nil, models.ErrInternalServer
	}
	return counts, nil
}

// AggregateAuditStore answers audit queries from the embedded log of the
// account aggregate. It backs the in-memory storage mode.
type AggregateAuditStore struct {
	accounts AccountReader
}

// NewAggregateAuditStore creates an AuditEntryStore over an account reader
func NewAggregateAuditStore(accounts AccountReader) *AggregateAuditStore {
	return &AggregateAuditStore{accounts: accounts}
}

func (s *AggregateAuditStore) Query(ctx context.Context, accountID string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]models.AuditEntry, 0)
	skipped := 0
	for e := range account.Query(a, filter) {
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *AggregateAuditStore) CountByAction(ctx context.Context, accountID string) (map[models.AuditAction]int64, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AuditAction]int64)
	for e := range account.Query(a, models.AuditFilter{}) {
		counts[e.Action]++
	}
	return counts, nil
}

// committedEntries returns the entries appended to after beyond those in before
func committedEntries(before, after *models.Account) []models.AuditEntry {
	if before == nil {
		return after.AuditLog
	}
	if len(after.AuditLog) <= len(before.AuditLog) {
		return nil
	}
	return after.AuditLog[len(before.AuditLog):]
}
