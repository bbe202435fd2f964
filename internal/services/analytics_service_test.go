package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/analytics"
	"marketpulse/internal/config"
	apierrors "marketpulse/internal/errors"
	"marketpulse/internal/storage"
	"marketpulse/internal/storage/memory"
)

var fixedNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func testConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		DefaultLookbackHours: 24,
		MaxLookbackHours:     720,
		DefaultLimit:         10,
		MaxLimit:             100,
	}
}

func newTestService(store storage.SnapshotStore) *AnalyticsService {
	svc := NewAnalyticsService(store, testConfig(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func fptr(v float64) *float64 { return &v }

// seedSamples loads a store with two symbols: AAA has a steady wide
// spread with modest volume, BBB a tight spread with growing volume.
func seedSamples(t *testing.T, store *memory.SnapshotStore) {
	t.Helper()

	var batch []analytics.MetricSample
	for i, hrs := range []int{3, 2, 1} {
		batch = append(batch,
			analytics.MetricSample{
				Symbol:        "AAA",
				CapturedAt:    fixedNow.Add(-time.Duration(hrs) * time.Hour),
				SpreadPercent: fptr(10),
				Volume24hUSD:  fptr(5000),
			},
			analytics.MetricSample{
				Symbol:        "BBB",
				CapturedAt:    fixedNow.Add(-time.Duration(hrs) * time.Hour),
				SpreadPercent: fptr(0.5),
				Volume24hUSD:  fptr(float64(100_000 * (i + 1))),
			},
		)
	}
	require.NoError(t, store.InsertSamples(context.Background(), batch))
}

// failingStore always errors, exercising the graceful-empty path.
type failingStore struct{}

func (failingStore) RecentSamples(context.Context, storage.SampleFilter) ([]analytics.MetricSample, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) InsertSamples(context.Context, []analytics.MetricSample) error {
	return errors.New("connection refused")
}

// TestLiquidityAnalysis tests the full liquidity pipeline end to end.
func TestLiquidityAnalysis(t *testing.T) {
	store := memory.NewSnapshotStore()
	seedSamples(t, store)
	svc := newTestService(store)

	resp, err := svc.LiquidityAnalysis(context.Background(), LiquidityQuery{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Message)
	assert.Equal(t, 24, resp.PeriodHours)
	assert.Equal(t, fixedNow, resp.Timestamp)

	require.Len(t, resp.Data, 2)
	assert.Equal(t, "BBB", resp.Data[0].Symbol, "tight spread ranks first")
	assert.Equal(t, analytics.StatusGood, resp.Data[0].LiquidityStatus)
	assert.Equal(t, "AAA", resp.Data[1].Symbol)
	assert.Equal(t, analytics.StatusPoor, resp.Data[1].LiquidityStatus)

	assert.Equal(t, 2, resp.AggregateStats.TotalPairsAnalyzed)
	assert.Equal(t, 1, resp.AggregateStats.StatusCounts.Poor)
	assert.Equal(t, 1, resp.AggregateStats.StatusCounts.Good)
}

// TestLiquidityAnalysisLimit tests that limit truncates data but the
// aggregate stats still cover every analyzed pair.
func TestLiquidityAnalysisLimit(t *testing.T) {
	store := memory.NewSnapshotStore()
	seedSamples(t, store)
	svc := newTestService(store)

	resp, err := svc.LiquidityAnalysis(context.Background(), LiquidityQuery{Limit: 1})
	require.NoError(t, err)

	require.Len(t, resp.Data, 1)
	assert.Equal(t, "BBB", resp.Data[0].Symbol)
	assert.Equal(t, 2, resp.AggregateStats.TotalPairsAnalyzed)
}

// TestLiquidityAnalysisSpreadBounds tests the min/max spread prefilter.
func TestLiquidityAnalysisSpreadBounds(t *testing.T) {
	store := memory.NewSnapshotStore()
	seedSamples(t, store)
	svc := newTestService(store)

	resp, err := svc.LiquidityAnalysis(context.Background(), LiquidityQuery{MinSpread: 5})
	require.NoError(t, err)

	require.Len(t, resp.Data, 1)
	assert.Equal(t, "AAA", resp.Data[0].Symbol)
}

// TestTopMovers tests direction filtering and metric selection.
func TestTopMovers(t *testing.T) {
	store := memory.NewSnapshotStore()
	seedSamples(t, store)
	svc := newTestService(store)

	t.Run("defaults to volume and both directions", func(t *testing.T) {
		resp, err := svc.TopMovers(context.Background(), TopMoversQuery{})
		require.NoError(t, err)

		assert.Equal(t, analytics.MetricVolume, resp.Metric)
		assert.Equal(t, analytics.DirectionBoth, resp.Direction)

		// AAA's volume is flat, BBB tripled.
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "BBB", resp.Data[0].Symbol)
		assert.Equal(t, analytics.DirectionUp, resp.Data[0].TrendDirection)
		assert.Equal(t, "AAA", resp.Data[1].Symbol)
		assert.Equal(t, analytics.DirectionStable, resp.Data[1].TrendDirection)
	})

	t.Run("direction filter drops non-matching symbols", func(t *testing.T) {
		resp, err := svc.TopMovers(context.Background(), TopMoversQuery{Direction: analytics.DirectionDown})
		require.NoError(t, err)
		assert.Empty(t, resp.Data)
	})

	t.Run("symbol filter narrows the universe", func(t *testing.T) {
		resp, err := svc.TopMovers(context.Background(), TopMoversQuery{Symbol: "AAA"})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "AAA", resp.Data[0].Symbol)
	})
}

// TestVolumeTrends tests the fixed-metric wrapper.
func TestVolumeTrends(t *testing.T) {
	store := memory.NewSnapshotStore()
	seedSamples(t, store)
	svc := newTestService(store)

	resp, err := svc.VolumeTrends(context.Background(), TrendsQuery{Hours: 6})
	require.NoError(t, err)

	assert.Equal(t, analytics.MetricVolume, resp.Metric)
	assert.Equal(t, analytics.DirectionBoth, resp.Direction)
	assert.Len(t, resp.Data, 2)
}

// TestGracefulDegradation tests that a missing or failing store yields a
// successful empty response instead of an error.
func TestGracefulDegradation(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		svc := newTestService(nil)

		resp, err := svc.LiquidityAnalysis(context.Background(), LiquidityQuery{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Empty(t, resp.Data)
		assert.Equal(t, "no snapshot data available yet", resp.Message)
	})

	t.Run("failing store", func(t *testing.T) {
		svc := newTestService(failingStore{})

		resp, err := svc.TopMovers(context.Background(), TopMoversQuery{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Empty(t, resp.Data)
		assert.NotEmpty(t, resp.Message)
	})
}

// TestQueryValidation tests parameter bounds and enum checks.
func TestQueryValidation(t *testing.T) {
	svc := newTestService(memory.NewSnapshotStore())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "hours above the configured maximum",
			call: func() error {
				_, err := svc.LiquidityAnalysis(ctx, LiquidityQuery{Hours: 10_000})
				return err
			},
		},
		{
			name: "limit above the configured maximum",
			call: func() error {
				_, err := svc.TopMovers(ctx, TopMoversQuery{Limit: 500})
				return err
			},
		},
		{
			name: "negative hours",
			call: func() error {
				_, err := svc.VolumeTrends(ctx, TrendsQuery{Hours: -1})
				return err
			},
		},
		{
			name: "min_spread above max_spread",
			call: func() error {
				_, err := svc.LiquidityAnalysis(ctx, LiquidityQuery{MinSpread: 50, MaxSpread: 10})
				return err
			},
		},
		{
			name: "unknown metric",
			call: func() error {
				_, err := svc.TopMovers(ctx, TopMoversQuery{Metric: "velocity"})
				return err
			},
		},
		{
			name: "unknown direction",
			call: func() error {
				_, err := svc.TopMovers(ctx, TopMoversQuery{Direction: "sideways"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, 400, apiErr.StatusCode)
		})
	}
}
