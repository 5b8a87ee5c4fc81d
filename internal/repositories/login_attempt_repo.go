package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/google/uuid"
)

// LoginAttemptRepository keeps the forensic history of login attempts
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt records a login attempt in the database
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO login_attempts (id, account_id, email, ip_address, user_agent, attempt_time, success, failure_reason, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.AccountID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.AttemptTime,
		attempt.Success,
		attempt.FailureReason,
		attempt.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", database.MapPostgresError(err))
	}
	return nil
}

// ListRecent returns the newest attempts for an email
func (r *LoginAttemptRepository) ListRecent(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, account_id, email, ip_address, user_agent, attempt_time, success, failure_reason, expires_at
		FROM login_attempts
		WHERE email = $1
		ORDER BY attempt_time DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, email, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Email, &a.IPAddress, &a.UserAgent,
			&a.AttemptTime, &a.Success, &a.FailureReason, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

// DeleteExpiredAttempts removes login attempts past their retention and
// reports how many rows went
func (r *LoginAttemptRepository) DeleteExpiredAttempts(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
