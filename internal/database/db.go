package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/courier/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories care about
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateNotNullViolation     = "23502"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

var sqlStateSentinels = map[string]error{
	sqlStateUniqueViolation:      models.ErrConflict,
	sqlStateForeignKeyViolation:  models.ErrBadRequest,
	sqlStateNotNullViolation:     models.ErrBadRequest,
	sqlStateCheckViolation:       models.ErrBadRequest,
	sqlStateSerializationFailure: models.ErrConcurrentModification,
	sqlStateDeadlockDetected:     models.ErrConcurrentModification,
}

// MapPostgresError translates driver errors into model sentinels. Errors it
// does not recognise are returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if sentinel, ok := sqlStateSentinels[pgErr.Code]; ok {
			return sentinel
		}
	}
	return err
}

// WithTransaction commits when fn returns nil and rolls back otherwise,
// including when fn panics
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if err := pgx.BeginFunc(ctx, db.Pool, fn); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}
