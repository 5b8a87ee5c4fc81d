package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/courier/migrations"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// withGoose opens a database/sql handle from the pool's config for goose
func withGoose(db *DB, fn func(sqlDB *sql.DB) error) error {
	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(sqlDB)
}

// Migrate applies the embedded goose migrations
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	return withGoose(db, func(sqlDB *sql.DB) error {
		if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		version, err := goose.GetDBVersionContext(ctx, sqlDB)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if logger != nil {
			logger.Info("database migrated", slog.Int64("version", version))
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration
func MigrateDown(ctx context.Context, db *DB) error {
	return withGoose(db, func(sqlDB *sql.DB) error {
		if err := goose.DownContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		return nil
	})
}

// MigrateStatus prints the state of every embedded migration
func MigrateStatus(ctx context.Context, db *DB) error {
	return withGoose(db, func(sqlDB *sql.DB) error {
		if err := goose.StatusContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}
