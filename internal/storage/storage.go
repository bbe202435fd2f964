// Package storage defines the snapshot store boundary between the
// analytics engine and whatever holds the captured metric samples.
// Implementations live in subpackages; the engine itself never touches
// this package.
package storage

import (
	"context"
	"errors"
	"time"

	"marketpulse/internal/analytics"
)

// Common storage errors.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrNotConfigured indicates no backend was configured. Callers treat
	// this as "no data yet", not as a failure.
	ErrNotConfigured = errors.New("snapshot store not configured")
)

// SampleFilter narrows a RecentSamples query. The zero value matches
// everything since the beginning of time.
type SampleFilter struct {
	// Symbol restricts the query to one trading pair when non-empty.
	Symbol string
	// Since is the inclusive lower bound on captured_at.
	Since time.Time
	// MinSpread/MaxSpread exclude rows whose captured spread lies outside
	// the range. Rows without a spread value pass both bounds; they can
	// still contribute volume or price points downstream.
	MinSpread *float64
	MaxSpread *float64
}

// SnapshotStore persists and retrieves metric samples.
type SnapshotStore interface {
	// RecentSamples returns samples matching the filter, sorted descending
	// by captured_at. The analytics series builder depends on this order.
	RecentSamples(ctx context.Context, filter SampleFilter) ([]analytics.MetricSample, error)
	// InsertSamples appends a batch of samples from the collector.
	InsertSamples(ctx context.Context, samples []analytics.MetricSample) error
}
