// Command collector polls the exchange ticker endpoint on an interval and
// writes metric snapshots to the configured database. It is deployed
// alongside the API server, which only reads.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marketpulse/internal/collector"
	"marketpulse/internal/config"
	"marketpulse/internal/infrastructure"
	"marketpulse/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Database.DSN == "" {
		logger.Error("collector requires a database DSN")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	c := collector.New(cfg.Collector, postgres.NewSnapshotStore(pool), logger)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("collector stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
