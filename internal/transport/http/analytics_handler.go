package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"marketpulse/internal/analytics"
	apierrors "marketpulse/internal/errors"
	"marketpulse/internal/services"
)

// AnalyticsHandler serves the dashboard analytics endpoints.
type AnalyticsHandler struct {
	service      *services.AnalyticsService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates the handler.
func NewAnalyticsHandler(service *services.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// RegisterRoutes mounts the analytics routes on the router.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/liquidity", h.GetLiquidity)
		r.Get("/top-movers", h.GetTopMovers)
		r.Get("/volume-trends", h.GetVolumeTrends)
	})
}

// GetLiquidity returns per-symbol liquidity scores and aggregate stats.
func (h *AnalyticsHandler) GetLiquidity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q services.LiquidityQuery
	q.Symbol = r.URL.Query().Get("symbol")

	var err error
	if q.Hours, err = intParam(r, "hours"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.Limit, err = intParam(r, "limit"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.MinSpread, err = floatParam(r, "min_spread"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.MaxSpread, err = floatParam(r, "max_spread"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "liquidity analysis requested",
		slog.String("symbol", q.Symbol),
		slog.Int("hours", q.Hours))

	resp, err := h.service.LiquidityAnalysis(ctx, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// GetTopMovers returns symbols ranked by absolute change in the chosen
// metric, optionally filtered to one trend direction.
func (h *AnalyticsHandler) GetTopMovers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q services.TopMoversQuery
	q.Symbol = r.URL.Query().Get("symbol")
	q.Metric = analytics.Metric(r.URL.Query().Get("metric"))
	q.Direction = analytics.Direction(r.URL.Query().Get("direction"))

	var err error
	if q.Hours, err = intParam(r, "hours"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.Limit, err = intParam(r, "limit"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "top movers requested",
		slog.String("metric", string(q.Metric)),
		slog.String("direction", string(q.Direction)))

	resp, err := h.service.TopMovers(ctx, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// GetVolumeTrends returns the volume trend view across symbols.
func (h *AnalyticsHandler) GetVolumeTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q services.TrendsQuery
	q.Symbol = r.URL.Query().Get("symbol")

	var err error
	if q.Hours, err = intParam(r, "hours"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.Limit, err = intParam(r, "limit"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.VolumeTrends(ctx, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// intParam parses an optional integer query parameter. Absent yields
// zero, which the service replaces with its configured default.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, "must be an integer")
	}
	return v, nil
}

// floatParam parses an optional float query parameter.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apierrors.ErrValidation(name, "must be a number")
	}
	return v, nil
}
