// Command migrate applies pending SQL migrations and exits.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/taskmate-bot/taskmate/internal/database"
	"github.com/taskmate-bot/taskmate/pkg/config"
	"github.com/taskmate-bot/taskmate/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(*cfg)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	dir := cfg.Database.MigrationsDir
	if dir == "" {
		dir = "migrations"
	}

	if err := database.NewMigrator(db, log).ApplyDir(ctx, dir); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("migrations applied", slog.String("dir", dir))
}
