package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/courier/internal/config"
	"github.com/BradenHooton/courier/internal/database"
)

const usage = "usage: migrate [up|down|status]"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Storage.Backend != config.StoragePostgres {
		logger.Error("migrations require STORAGE_BACKEND=postgres", slog.String("backend", cfg.Storage.Backend))
		os.Exit(1)
	}

	db, err := database.NewConnection(context.Background(), &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "up":
		err = database.Migrate(ctx, db, logger)
	case "down":
		err = database.MigrateDown(ctx, db)
	case "status":
		err = database.MigrateStatus(ctx, db)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("migration failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migration finished", slog.String("command", command))
}
