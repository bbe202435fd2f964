// Package collector polls an exchange ticker endpoint and persists metric
// snapshots through the snapshot store. The analytics endpoints never talk
// to the exchange themselves; they only read what the collector has written.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"marketpulse/internal/analytics"
	"marketpulse/internal/config"
	"marketpulse/internal/storage"
)

// ticker is the exchange's per-symbol payload. Prices and volumes are
// pointers so a field the exchange omits stays absent in the stored sample.
type ticker struct {
	Symbol             string   `json:"symbol"`
	Bid                *float64 `json:"bid"`
	Ask                *float64 `json:"ask"`
	LastPrice          *float64 `json:"last_price"`
	Volume24hUSD       *float64 `json:"volume_24h_usd"`
	DailyChangePercent *float64 `json:"daily_change_percent"`
}

// Collector periodically snapshots every configured symbol.
type Collector struct {
	cfg     config.CollectorConfig
	store   storage.SnapshotStore
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a collector. The rate limiter spans all symbols so a large
// symbol list cannot exceed the exchange's request budget.
func New(cfg config.CollectorConfig, store storage.SnapshotStore, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:     cfg,
		store:   store,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger.With(slog.String("component", "collector")),
		now:     time.Now,
	}
}

// Run collects immediately and then on every interval tick until the
// context is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "collector starting",
		slog.Int("symbols", len(c.cfg.Symbols)),
		slog.Duration("interval", c.cfg.Interval))

	tick := time.NewTicker(c.cfg.Interval)
	defer tick.Stop()

	for {
		if err := c.CollectOnce(ctx); err != nil {
			c.logger.ErrorContext(ctx, "collection cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "collector stopping")
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// CollectOnce fetches every symbol concurrently and writes one batch. A
// symbol whose fetch fails is logged and skipped; the cycle errors only
// when the batch insert does.
func (c *Collector) CollectOnce(ctx context.Context) error {
	capturedAt := c.now().UTC()

	var (
		mu      sync.Mutex
		samples []analytics.MetricSample
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range c.cfg.Symbols {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}

			sample, err := c.fetchSymbol(gctx, symbol, capturedAt)
			if err != nil {
				c.logger.WarnContext(gctx, "symbol fetch failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			samples = append(samples, sample)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(samples) == 0 {
		c.logger.WarnContext(ctx, "collection cycle produced no samples")
		return nil
	}

	if err := c.store.InsertSamples(ctx, samples); err != nil {
		return fmt.Errorf("persist samples: %w", err)
	}

	c.logger.InfoContext(ctx, "collection cycle complete",
		slog.Int("samples", len(samples)))
	return nil
}

// fetchSymbol retrieves one ticker and converts it to a metric sample.
func (c *Collector) fetchSymbol(ctx context.Context, symbol string, capturedAt time.Time) (analytics.MetricSample, error) {
	endpoint := fmt.Sprintf("%s/ticker?symbol=%s", c.cfg.BaseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return analytics.MetricSample{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return analytics.MetricSample{}, fmt.Errorf("fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return analytics.MetricSample{}, fmt.Errorf("ticker returned status %d", resp.StatusCode)
	}

	var t ticker
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return analytics.MetricSample{}, fmt.Errorf("decode ticker: %w", err)
	}

	return analytics.MetricSample{
		Symbol:             symbol,
		CapturedAt:         capturedAt,
		SpreadPercent:      spreadPercent(t.Bid, t.Ask),
		Volume24hUSD:       t.Volume24hUSD,
		LastPrice:          t.LastPrice,
		DailyChangePercent: t.DailyChangePercent,
	}, nil
}

// spreadPercent derives the bid/ask spread as a percent of the midpoint.
// Missing or degenerate quotes yield an absent spread, not a zero.
func spreadPercent(bid, ask *float64) *float64 {
	if bid == nil || ask == nil {
		return nil
	}
	mid := (*bid + *ask) / 2
	if mid <= 0 || *ask < *bid {
		return nil
	}
	pct := (*ask - *bid) / mid * 100
	return &pct
}
