package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/taskmate-bot/taskmate/internal/bot"
	"github.com/taskmate-bot/taskmate/internal/database"
	"github.com/taskmate-bot/taskmate/internal/repository"
	"github.com/taskmate-bot/taskmate/internal/session"
	"github.com/taskmate-bot/taskmate/internal/task"
	"github.com/taskmate-bot/taskmate/internal/user"
	"github.com/taskmate-bot/taskmate/pkg/config"
	"github.com/taskmate-bot/taskmate/pkg/graceful"
	"github.com/taskmate-bot/taskmate/pkg/logger"
	"github.com/taskmate-bot/taskmate/pkg/metrics"
	appredis "github.com/taskmate-bot/taskmate/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			slog.Error("failed to initialize sentry", slog.Any("error", err))
			return
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting taskmate bot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
	)

	config.Watch(v, log, func(updated config.Config) {
		log.Info("configuration reloaded", slog.String("log_level", updated.Logger.Level))
	})

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		return
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		return
	}

	migrationsDir := cfg.Database.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.NewMigrator(db, log).ApplyDir(ctx, migrationsDir); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		return
	}
	log.Info("database migrations applied")

	sessions, redisClient, err := buildSessionStore(ctx, *cfg, log)
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		return
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				log.Error("error closing redis client", slog.Any("error", cerr))
			}
		}()

		if cfg.Session.CleanupInterval > 0 {
			cleaner := session.NewCleaner(redisClient.Client, log, cfg.Session.CleanupInterval)
			go cleaner.Run(ctx)
		}
	}

	users := user.NewService(repository.NewUserRepository(db, log), log)
	tasks := task.NewService(repository.NewTaskRepository(db, log), log)

	b, err := bot.New(*cfg, log, sessions, users, tasks)
	if err != nil {
		log.Error("failed to build bot", slog.Any("error", err))
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := graceful.NewServer(log, &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: logger.Middleware(mux),
	}, cfg.Server.ShutdownTimeout)

	srvDone := make(chan struct{})
	go func() {
		defer close(srvDone)
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped with error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	log.Info("bot started")
	b.Start()

	<-srvDone
	log.Info("taskmate bot shut down")
}

// buildSessionStore picks Redis-backed sessions when an address is
// configured and falls back to the in-memory store otherwise.
func buildSessionStore(ctx context.Context, cfg config.Config, log *slog.Logger) (session.Store, *appredis.Client, error) {
	if cfg.Redis.Addr == "" {
		log.Warn("redis address not configured, using in-memory session store")
		return session.NewMemoryStore(), nil, nil
	}

	client, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	return session.NewRedisStore(client, log, cfg.Session.TTL), client, nil
}
