package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository reads the append-only account audit log
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const auditEntryColumns = `seq, action, details, created_at, ip_address`

func scanAuditEntryRow(row rowScanner) (models.AuditEntry, error) {
	var e models.AuditEntry
	err := row.Scan(&e.Seq, &e.Action, &e.Details, &e.Timestamp, &e.IPAddress)
	if err != nil {
		return models.AuditEntry{}, database.MapPostgresError(err)
	}
	return e, nil
}

func scanAuditEntryRows(rows pgx.Rows) ([]models.AuditEntry, error) {
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		e, err := scanAuditEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return entries, nil
}

func loadAuditEntries(ctx context.Context, q querier, accountID string) ([]models.AuditEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT `+auditEntryColumns+` FROM account_audit_log WHERE account_id = $1 ORDER BY seq`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return scanAuditEntryRows(rows)
}

// insertAuditEntries appends entries inside the caller's transaction. The
// primary key on (account_id, seq) rejects a second writer that raced past
// the version check.
func insertAuditEntries(ctx context.Context, tx pgx.Tx, accountID string, entries []models.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO account_audit_log (account_id, seq, action, details, ip_address, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			accountID, e.Seq, e.Action, e.Details, e.IPAddress, e.Timestamp,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			if mapped := database.MapPostgresError(err); errors.Is(mapped, models.ErrConflict) {
				return models.ErrConcurrentModification
			}
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
	}
	return nil
}

// Query returns the account's entries matching filter in insertion order.
// A limit <= 0 returns every match.
func (r *AuditLogRepository) Query(ctx context.Context, accountID string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	conditions := []string{"account_id = $1"}
	args := []any{accountID}

	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		args = append(args, actions)
		conditions = append(conditions, fmt.Sprintf("action = ANY($%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + auditEntryColumns + ` FROM account_audit_log WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY seq`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return scanAuditEntryRows(rows)
}

// CountByAction tallies the account's entries per action
func (r *AuditLogRepository) CountByAction(ctx context.Context, accountID string) (map[models.AuditAction]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT action, COUNT(*) FROM account_audit_log WHERE account_id = $1 GROUP BY action`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.AuditAction]int64)
	for rows.Next() {
		var action models.AuditAction
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("failed to scan audit count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}
