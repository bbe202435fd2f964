package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"marketpulse/internal/infrastructure"
)

// OTelMiddleware instruments HTTP requests with a server span, a request
// counter, and a latency histogram.
type OTelMiddleware struct {
	tracer          trace.Tracer
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewOTelMiddleware creates the middleware from initialized providers.
func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	m := &OTelMiddleware{tracer: providers.Tracer}

	if providers.Meter != nil {
		var err error
		m.requestCounter, err = providers.Meter.Int64Counter("http.server.requests",
			metric.WithDescription("Total HTTP requests handled"))
		if err != nil {
			return nil, fmt.Errorf("create request counter: %w", err)
		}
		m.requestDuration, err = providers.Meter.Float64Histogram("http.server.duration",
			metric.WithDescription("HTTP request duration"),
			metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("create request duration histogram: %w", err)
		}
	}

	return m, nil
}

// Handler returns the instrumentation middleware.
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		if m.tracer != nil {
			var span trace.Span
			ctx, span = m.tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(r.URL.Path),
					semconv.UserAgentOriginalKey.String(r.UserAgent()),
				),
			)
			defer span.End()

			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			m.record(ctx, r, status, time.Since(start))
			return
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		m.record(ctx, r, ww.Status(), time.Since(start))
	})
}

// record writes the counter and histogram points when metrics are on.
func (m *OTelMiddleware) record(ctx context.Context, r *http.Request, status int, elapsed time.Duration) {
	if m.requestCounter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", r.URL.Path),
		attribute.Int("http.status_code", status),
	)
	m.requestCounter.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}
