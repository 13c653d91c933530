// Package main runs the mjqueue server: the HTTP trigger API, the task queue
// with its dispatcher and sweeper, the chat gateway listener and the webhook
// notifier.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/mjqueue/internal/config"
	"github.com/phrazzld/mjqueue/internal/platform/logger"
	"github.com/phrazzld/mjqueue/internal/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("mjqueue: %s", redact.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, l, err := initializeApp()
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// initializeApp loads configuration and sets up the process-wide logger.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store", cfg.Store.Backend,
		"launcher", cfg.Queue.Launcher,
		"concurrency_size", cfg.Queue.ConcurrencySize,
		"wait_size", cfg.Queue.WaitSize)
	if cfg.Store.DatabaseURL != "" {
		l.Debug("database configuration", "url", redact.String(cfg.Store.DatabaseURL))
	}
	if cfg.Auth.JWTSecret != "" {
		l.Debug("auth configuration", "jwt_secret_present", true)
	}
	return cfg, l, nil
}
