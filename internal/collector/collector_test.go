package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/config"
	"marketpulse/internal/storage"
	"marketpulse/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig(baseURL string, symbols ...string) config.CollectorConfig {
	return config.CollectorConfig{
		BaseURL:           baseURL,
		Symbols:           symbols,
		Interval:          time.Minute,
		RequestsPerSecond: 100,
		RequestTimeout:    2 * time.Second,
	}
}

// newTickerServer serves a fixed ticker payload per symbol.
func newTickerServer(t *testing.T, payloads map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Query().Get("symbol")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestCollectOnce tests a full cycle against a fake exchange.
func TestCollectOnce(t *testing.T) {
	srv := newTickerServer(t, map[string]string{
		"BTC/USDT": `{"symbol":"BTC/USDT","bid":99.5,"ask":100.5,"last_price":100,"volume_24h_usd":1500000,"daily_change_percent":2.5}`,
		"ETH/USDT": `{"symbol":"ETH/USDT","last_price":50,"volume_24h_usd":300000}`,
	})

	store := memory.NewSnapshotStore()
	c := New(testConfig(srv.URL, "BTC/USDT", "ETH/USDT"), store, testLogger())
	fixed := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	require.NoError(t, c.CollectOnce(context.Background()))

	rows, err := store.RecentSamples(context.Background(), storage.SampleFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bySymbol := map[string]int{}
	for i, row := range rows {
		bySymbol[row.Symbol] = i
		assert.Equal(t, fixed, row.CapturedAt)
	}

	btc := rows[bySymbol["BTC/USDT"]]
	require.NotNil(t, btc.SpreadPercent)
	assert.InDelta(t, 1.0, *btc.SpreadPercent, 0.001)
	require.NotNil(t, btc.Volume24hUSD)
	assert.Equal(t, 1_500_000.0, *btc.Volume24hUSD)
	require.NotNil(t, btc.DailyChangePercent)
	assert.Equal(t, 2.5, *btc.DailyChangePercent)

	eth := rows[bySymbol["ETH/USDT"]]
	assert.Nil(t, eth.SpreadPercent, "no quotes means no spread")
	assert.Nil(t, eth.DailyChangePercent)
	require.NotNil(t, eth.LastPrice)
	assert.Equal(t, 50.0, *eth.LastPrice)
}

// TestCollectOnceSkipsFailedSymbols tests that one bad symbol does not
// sink the cycle.
func TestCollectOnceSkipsFailedSymbols(t *testing.T) {
	srv := newTickerServer(t, map[string]string{
		"GOOD/USDT": `{"symbol":"GOOD/USDT","bid":1,"ask":1.01,"volume_24h_usd":1000}`,
	})

	store := memory.NewSnapshotStore()
	c := New(testConfig(srv.URL, "GOOD/USDT", "MISSING/USDT"), store, testLogger())

	require.NoError(t, c.CollectOnce(context.Background()))
	assert.Equal(t, 1, store.Len())
}

// TestCollectOnceEmptyCycle tests that zero fetched samples writes nothing.
func TestCollectOnceEmptyCycle(t *testing.T) {
	srv := newTickerServer(t, nil)

	store := memory.NewSnapshotStore()
	c := New(testConfig(srv.URL, "MISSING/USDT"), store, testLogger())

	require.NoError(t, c.CollectOnce(context.Background()))
	assert.Zero(t, store.Len())
}

// TestSpreadPercent tests quote edge cases.
func TestSpreadPercent(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		bid  *float64
		ask  *float64
		want *float64
	}{
		{"normal quote", f(99.5), f(100.5), f(1.0)},
		{"missing bid", nil, f(100), nil},
		{"missing ask", f(100), nil, nil},
		{"zero midpoint", f(0), f(0), nil},
		{"crossed quote", f(101), f(100), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spreadPercent(tt.bid, tt.ask)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.001)
		})
	}
}

// TestRunStopsOnCancel tests that Run honors context cancellation.
func TestRunStopsOnCancel(t *testing.T) {
	srv := newTickerServer(t, map[string]string{
		"BTC/USDT": `{"symbol":"BTC/USDT","bid":1,"ask":1.01}`,
	})

	store := memory.NewSnapshotStore()
	c := New(testConfig(srv.URL, "BTC/USDT"), store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
