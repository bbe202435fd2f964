package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"marketpulse/internal/analytics"
	"marketpulse/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// RecentSamples returns samples matching the filter, newest first.
// Nullable metric columns scan directly into the sample's pointer fields,
// preserving the absent-versus-zero distinction end to end.
func (s *SnapshotStore) RecentSamples(ctx context.Context, filter storage.SampleFilter) ([]analytics.MetricSample, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.Since.IsZero() {
		conds = append(conds, "captured_at >= "+arg(filter.Since))
	}
	if filter.Symbol != "" {
		conds = append(conds, "symbol = "+arg(filter.Symbol))
	}
	if filter.MinSpread != nil {
		conds = append(conds, "(spread_percent IS NULL OR spread_percent >= "+arg(*filter.MinSpread)+")")
	}
	if filter.MaxSpread != nil {
		conds = append(conds, "(spread_percent IS NULL OR spread_percent <= "+arg(*filter.MaxSpread)+")")
	}

	query := `
		SELECT symbol, captured_at, spread_percent, volume_24h_usd, last_price, daily_change_percent
		FROM metric_samples
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY captured_at DESC, symbol ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metric samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// InsertSamples appends a batch of samples from the collector.
func (s *SnapshotStore) InsertSamples(ctx context.Context, samples []analytics.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO metric_samples (
			symbol, captured_at, spread_percent, volume_24h_usd, last_price, daily_change_percent
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, sm := range samples {
		_, err := tx.Exec(ctx, query,
			sm.Symbol, sm.CapturedAt,
			sm.SpreadPercent, sm.Volume24hUSD, sm.LastPrice, sm.DailyChangePercent,
		)
		if err != nil {
			return fmt.Errorf("insert metric sample: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// scanSamples scans query rows into metric samples.
func scanSamples(rows pgx.Rows) ([]analytics.MetricSample, error) {
	var samples []analytics.MetricSample

	for rows.Next() {
		var sm analytics.MetricSample

		err := rows.Scan(
			&sm.Symbol, &sm.CapturedAt,
			&sm.SpreadPercent, &sm.Volume24hUSD, &sm.LastPrice, &sm.DailyChangePercent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric sample row: %w", err)
		}

		samples = append(samples, sm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric sample rows: %w", err)
	}

	return samples, nil
}
