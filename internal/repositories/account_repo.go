package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `
	id, email, first_name, last_name, role, password_hash, password_changed_at,
	is_verified, is_super_admin, status, plan, subscription_start, subscription_end,
	login_attempts, lock_until, session_started, session_ended, session_duration_ms,
	device, location, login_count, last_login, last_activity, session_count,
	average_session_ms, total_session_ms, failed_login_attempts, password_changes,
	last_password_change, accounts_created, contacts_added, messages_sent,
	campaigns_created, templates_created, feature_usage, admin_notes, version,
	created_at, updated_at`

// scanAccountRow populates an Account (without its audit log) from a row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	var sessionMs *int64
	var averageMs, totalMs int64
	var device, location, features []byte

	err := scanner.Scan(
		&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Role, &a.PasswordHash, &a.PasswordChangedAt,
		&a.IsVerified, &a.IsSuperAdmin, &a.Status, &a.Plan, &a.SubscriptionStart, &a.SubscriptionEnd,
		&a.Lock.LoginAttempts, &a.Lock.LockUntil, &a.Session.Started, &a.Session.Ended, &sessionMs,
		&device, &location, &a.Metrics.LoginCount, &a.Metrics.LastLogin, &a.Metrics.LastActivity, &a.Metrics.SessionCount,
		&averageMs, &totalMs, &a.Metrics.FailedLoginAttempts, &a.Metrics.PasswordChanges,
		&a.Metrics.LastPasswordChange, &a.Activity.AccountsCreated, &a.Activity.ContactsAdded, &a.Activity.MessagesSent,
		&a.Activity.CampaignsCreated, &a.Activity.TemplatesCreated, &features, &a.AdminNotes, &a.Version,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if sessionMs != nil {
		d := time.Duration(*sessionMs) * time.Millisecond
		a.Session.Duration = &d
	}
	a.Metrics.AverageSessionDuration = time.Duration(averageMs) * time.Millisecond
	a.Metrics.TotalSessionTime = time.Duration(totalMs) * time.Millisecond

	if err := json.Unmarshal(device, &a.Device); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	if err := json.Unmarshal(location, &a.Location); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}

	a.Features = models.NewFeatureUsage()
	stored := make(models.FeatureUsage)
	if err := json.Unmarshal(features, &stored); err != nil {
		return nil, fmt.Errorf("decode feature usage: %w", err)
	}
	for f, stat := range stored {
		if f.Valid() {
			a.Features[f] = stat
		}
	}

	return &a, nil
}

// accountArgs returns the mutable column values in accountColumns order,
// starting at first_name
func accountArgs(a *models.Account) ([]any, error) {
	device, err := json.Marshal(a.Device)
	if err != nil {
		return nil, fmt.Errorf("encode device: %w", err)
	}
	location, err := json.Marshal(a.Location)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}
	features, err := json.Marshal(a.Features)
	if err != nil {
		return nil, fmt.Errorf("encode feature usage: %w", err)
	}

	var sessionMs *int64
	if a.Session.Duration != nil {
		ms := a.Session.Duration.Milliseconds()
		sessionMs = &ms
	}

	return []any{
		a.FirstName, a.LastName, a.Role, a.PasswordHash, a.PasswordChangedAt,
		a.IsVerified, a.IsSuperAdmin, a.Status, a.Plan, a.SubscriptionStart, a.SubscriptionEnd,
		a.Lock.LoginAttempts, a.Lock.LockUntil, a.Session.Started, a.Session.Ended, sessionMs,
		device, location, a.Metrics.LoginCount, a.Metrics.LastLogin, a.Metrics.LastActivity, a.Metrics.SessionCount,
		a.Metrics.AverageSessionDuration.Milliseconds(), a.Metrics.TotalSessionTime.Milliseconds(),
		a.Metrics.FailedLoginAttempts, a.Metrics.PasswordChanges,
		a.Metrics.LastPasswordChange, a.Activity.AccountsCreated, a.Activity.ContactsAdded, a.Activity.MessagesSent,
		a.Activity.CampaignsCreated, a.Activity.TemplatesCreated, features, a.AdminNotes,
	}, nil
}

// GetByID loads the account and its full audit log
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if a.AuditLog, err = loadAuditEntries(ctx, r.db.Pool, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// GetByEmail loads the account registered under email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	if a.AuditLog, err = loadAuditEntries(ctx, r.db.Pool, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns accounts newest first, without audit logs
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

// Create inserts a new account at version 1 together with its initial audit
// entries
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	created := account.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	created.Version = 1

	args, err := accountArgs(created)
	if err != nil {
		return nil, err
	}
	args = append([]any{created.ID, created.Email}, args...)
	args = append(args, created.Version, created.CreatedAt, created.UpdatedAt)

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38, $39)
	`

	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return database.MapPostgresError(err)
		}
		return insertAuditEntries(ctx, tx, created.ID, created.AuditLog)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Update writes the account if its stored version still equals
// account.Version. Audit entries beyond the stored log are appended in the
// same transaction. A stale version yields ErrConcurrentModification.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	updated := account.Clone()

	args, err := accountArgs(updated)
	if err != nil {
		return nil, err
	}
	args = append(args, updated.UpdatedAt, updated.ID, updated.Version)

	query := `
		UPDATE accounts SET
			first_name = $1, last_name = $2, role = $3, password_hash = $4, password_changed_at = $5,
			is_verified = $6, is_super_admin = $7, status = $8, plan = $9, subscription_start = $10, subscription_end = $11,
			login_attempts = $12, lock_until = $13, session_started = $14, session_ended = $15, session_duration_ms = $16,
			device = $17, location = $18, login_count = $19, last_login = $20, last_activity = $21, session_count = $22,
			average_session_ms = $23, total_session_ms = $24, failed_login_attempts = $25, password_changes = $26,
			last_password_change = $27, accounts_created = $28, contacts_added = $29, messages_sent = $30,
			campaigns_created = $31, templates_created = $32, feature_usage = $33, admin_notes = $34,
			updated_at = $35, version = version + 1
		WHERE id = $36 AND version = $37
		RETURNING version
	`

	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, args...).Scan(&updated.Version); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.missingOrStale(ctx, tx, updated.ID)
			}
			return database.MapPostgresError(err)
		}

		var lastSeq int64
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM account_audit_log WHERE account_id = $1`, updated.ID,
		).Scan(&lastSeq); err != nil {
			return fmt.Errorf("failed to read audit position: %w", err)
		}

		pending := make([]models.AuditEntry, 0)
		for _, e := range updated.AuditLog {
			if e.Seq > lastSeq {
				pending = append(pending, e)
			}
		}
		return insertAuditEntries(ctx, tx, updated.ID, pending)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *AccountRepository) missingOrStale(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return database.MapPostgresError(err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrConcurrentModification
}
