// Command liquidity-report renders the current liquidity analysis as an
// xlsx workbook, for sharing outside the dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"marketpulse/internal/analytics"
	"marketpulse/internal/config"
	"marketpulse/internal/exporter"
	"marketpulse/internal/infrastructure"
	"marketpulse/internal/storage"
	"marketpulse/internal/storage/postgres"
)

func main() {
	outputDir := flag.String("out", "reports", "output directory for the report")
	hours := flag.Int("hours", 24, "lookback window in hours")
	symbol := flag.String("symbol", "", "restrict the report to one symbol")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if cfg.Database.DSN == "" {
		logger.Error("liquidity-report requires a database DSN")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.NewSnapshotStore(pool)
	now := time.Now().UTC()

	rows, err := store.RecentSamples(ctx, storage.SampleFilter{
		Symbol: *symbol,
		Since:  now.Add(-time.Duration(*hours) * time.Hour),
	})
	if err != nil {
		logger.Error("failed to load snapshots", "error", err)
		os.Exit(1)
	}

	spreads := analytics.BuildSeries(rows, analytics.MetricSpread)
	volumes := analytics.BuildSeries(rows, analytics.MetricVolume)
	records := analytics.AnalyzeLiquidity(spreads, volumes)
	stats := analytics.Summarize(records)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	outPath := filepath.Join(*outputDir, fmt.Sprintf("liquidity_%s.xlsx", now.Format("2006-01-02_1504")))
	out, err := os.Create(outPath)
	if err != nil {
		logger.Error("failed to create report file", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := exporter.WriteLiquidityReport(out, records, stats, now); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	logger.Info("liquidity report written",
		slog.String("path", outPath),
		slog.Int("pairs", stats.TotalPairsAnalyzed),
		slog.Int("hours", *hours))
}
