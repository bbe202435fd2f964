// Package services orchestrates the analytics requests: fetch snapshot
// rows from storage, run the engine, shape the response payload. The
// graceful-degradation policy lives here: a missing or failing store
// produces an empty successful response, never a hard failure, so the
// dashboard renders an empty state instead of an error page.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"marketpulse/internal/analytics"
	"marketpulse/internal/config"
	apierrors "marketpulse/internal/errors"
	"marketpulse/internal/storage"
)

// AnalyticsService computes the dashboard analytics from stored samples.
type AnalyticsService struct {
	store    storage.SnapshotStore
	cfg      config.AnalyticsConfig
	logger   *slog.Logger
	validate *validator.Validate

	// now is swappable for tests.
	now func() time.Time
}

// NewAnalyticsService creates the service. store may be nil when no
// backend is configured; every query then takes the graceful-empty path.
func NewAnalyticsService(store storage.SnapshotStore, cfg config.AnalyticsConfig, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:    store,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "analytics_service")),
		validate: validator.New(),
		now:      time.Now,
	}
}

// LiquidityQuery holds the parameters of a liquidity analysis request.
type LiquidityQuery struct {
	Symbol    string  `validate:"omitempty,max=32"`
	Hours     int     `validate:"omitempty,min=1"`
	Limit     int     `validate:"omitempty,min=1"`
	MinSpread float64 `validate:"gte=0"`
	MaxSpread float64 `validate:"gte=0"`
}

// TopMoversQuery holds the parameters of a top-movers request.
type TopMoversQuery struct {
	Symbol    string              `validate:"omitempty,max=32"`
	Hours     int                 `validate:"omitempty,min=1"`
	Limit     int                 `validate:"omitempty,min=1"`
	Metric    analytics.Metric    `validate:"omitempty,oneof=volume price spread"`
	Direction analytics.Direction `validate:"omitempty,oneof=up down both"`
}

// TrendsQuery holds the parameters of a volume-trends request.
type TrendsQuery struct {
	Symbol string `validate:"omitempty,max=32"`
	Hours  int    `validate:"omitempty,min=1"`
	Limit  int    `validate:"omitempty,min=1"`
}

// LiquidityResponse is the payload of the liquidity endpoint.
type LiquidityResponse struct {
	Success        bool                          `json:"success"`
	Data           []analytics.LiquidityAnalysis `json:"data"`
	AggregateStats analytics.AggregateStats      `json:"aggregate_stats"`
	PeriodHours    int                           `json:"period_hours"`
	Timestamp      time.Time                     `json:"timestamp"`
	Message        string                        `json:"message,omitempty"`
}

// TopMoversResponse is the payload of the top-movers and volume-trends
// endpoints. Metric and Direction echo the effective query.
type TopMoversResponse struct {
	Success   bool                 `json:"success"`
	Data      []analytics.TopMover `json:"data"`
	Metric    analytics.Metric     `json:"metric"`
	Direction analytics.Direction  `json:"direction"`
	Timestamp time.Time            `json:"timestamp"`
	Message   string               `json:"message,omitempty"`
}

// emptyMessage explains an empty payload to the dashboard.
const emptyMessage = "no snapshot data available yet"

// LiquidityAnalysis runs the liquidity pipeline for the window.
func (s *AnalyticsService) LiquidityAnalysis(ctx context.Context, q LiquidityQuery) (*LiquidityResponse, error) {
	s.applyLiquidityDefaults(&q)
	if err := s.checkLiquidityQuery(q); err != nil {
		return nil, err
	}

	resp := &LiquidityResponse{
		Success:     true,
		Data:        []analytics.LiquidityAnalysis{},
		PeriodHours: q.Hours,
		Timestamp:   s.now().UTC(),
	}

	rows, ok := s.fetch(ctx, storage.SampleFilter{
		Symbol:    q.Symbol,
		Since:     s.since(q.Hours),
		MinSpread: &q.MinSpread,
		MaxSpread: &q.MaxSpread,
	})
	if !ok {
		resp.Message = emptyMessage
		return resp, nil
	}

	spreads := analytics.BuildSeries(rows, analytics.MetricSpread)
	volumes := analytics.BuildSeries(rows, analytics.MetricVolume)

	records := analytics.AnalyzeLiquidity(spreads, volumes)
	resp.AggregateStats = analytics.Summarize(records)
	if len(records) > q.Limit {
		records = records[:q.Limit]
	}
	resp.Data = records
	return resp, nil
}

// TopMovers runs the trend pipeline for the chosen metric and direction.
func (s *AnalyticsService) TopMovers(ctx context.Context, q TopMoversQuery) (*TopMoversResponse, error) {
	s.applyTopMoversDefaults(&q)
	if err := s.checkQuery(q, q.Hours, q.Limit); err != nil {
		return nil, err
	}

	resp := &TopMoversResponse{
		Success:   true,
		Data:      []analytics.TopMover{},
		Metric:    q.Metric,
		Direction: q.Direction,
		Timestamp: s.now().UTC(),
	}

	rows, ok := s.fetch(ctx, storage.SampleFilter{Symbol: q.Symbol, Since: s.since(q.Hours)})
	if !ok {
		resp.Message = emptyMessage
		return resp, nil
	}

	series := analytics.BuildSeries(rows, q.Metric)
	movers := analytics.ClassifyTrends(series, q.Metric)
	resp.Data = analytics.RankTopMovers(movers, q.Direction, q.Limit)
	return resp, nil
}

// VolumeTrends is the volume-metric trend view: every qualifying symbol,
// ordered by absolute change, without a direction filter.
func (s *AnalyticsService) VolumeTrends(ctx context.Context, q TrendsQuery) (*TopMoversResponse, error) {
	return s.TopMovers(ctx, TopMoversQuery{
		Symbol:    q.Symbol,
		Hours:     q.Hours,
		Limit:     q.Limit,
		Metric:    analytics.MetricVolume,
		Direction: analytics.DirectionBoth,
	})
}

// fetch pulls rows from the store, mapping both "no store" and a fetch
// failure onto the graceful-empty path. The bool reports whether rows
// are usable.
func (s *AnalyticsService) fetch(ctx context.Context, filter storage.SampleFilter) ([]analytics.MetricSample, bool) {
	if s.store == nil {
		s.logger.InfoContext(ctx, "snapshot store not configured, returning empty result")
		return nil, false
	}

	rows, err := s.store.RecentSamples(ctx, filter)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot fetch failed, returning empty result",
			slog.String("error", err.Error()))
		return nil, false
	}
	return rows, true
}

// since converts a lookback in hours to the window's lower bound.
func (s *AnalyticsService) since(hours int) time.Time {
	return s.now().UTC().Add(-time.Duration(hours) * time.Hour)
}

// applyLiquidityDefaults fills unset liquidity parameters.
func (s *AnalyticsService) applyLiquidityDefaults(q *LiquidityQuery) {
	if q.Hours == 0 {
		q.Hours = s.cfg.DefaultLookbackHours
	}
	if q.Limit == 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if q.MaxSpread == 0 {
		q.MaxSpread = 100
	}
}

// applyTopMoversDefaults fills unset top-movers parameters.
func (s *AnalyticsService) applyTopMoversDefaults(q *TopMoversQuery) {
	if q.Hours == 0 {
		q.Hours = s.cfg.DefaultLookbackHours
	}
	if q.Limit == 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if q.Metric == "" {
		q.Metric = analytics.MetricVolume
	}
	if q.Direction == "" {
		q.Direction = analytics.DirectionBoth
	}
}

// checkLiquidityQuery validates a liquidity query after defaults.
func (s *AnalyticsService) checkLiquidityQuery(q LiquidityQuery) error {
	if err := s.checkQuery(q, q.Hours, q.Limit); err != nil {
		return err
	}
	if q.MinSpread > q.MaxSpread {
		return apierrors.ErrValidation("min_spread", "must not exceed max_spread")
	}
	return nil
}

// checkQuery runs struct validation plus the configured range caps.
func (s *AnalyticsService) checkQuery(q any, hours, limit int) error {
	if err := s.validate.Struct(q); err != nil {
		return apierrors.NewWithDetails(400, "VALIDATION_FAILED", "Request validation failed", err.Error())
	}
	if hours > s.cfg.MaxLookbackHours {
		return apierrors.ErrValidation("hours", fmt.Sprintf("must not exceed %d", s.cfg.MaxLookbackHours))
	}
	if limit > s.cfg.MaxLimit {
		return apierrors.ErrValidation("limit", fmt.Sprintf("must not exceed %d", s.cfg.MaxLimit))
	}
	return nil
}
