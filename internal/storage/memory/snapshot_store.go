// Package memory implements the snapshot store in process memory. It
// backs unit tests and lets the server run without a configured database.
package memory

import (
	"context"
	"sort"
	"sync"

	"marketpulse/internal/analytics"
	"marketpulse/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore with an in-memory slice.
// Safe for concurrent use.
type SnapshotStore struct {
	mu      sync.RWMutex
	samples []analytics.MetricSample
}

// NewSnapshotStore creates an empty in-memory store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// RecentSamples returns matching samples sorted descending by captured_at,
// matching the contract the Postgres store gets from its ORDER BY.
func (s *SnapshotStore) RecentSamples(_ context.Context, filter storage.SampleFilter) ([]analytics.MetricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []analytics.MetricSample
	for _, sm := range s.samples {
		if !matches(sm, filter) {
			continue
		}
		out = append(out, sm)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.After(out[j].CapturedAt)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

// InsertSamples appends a batch of samples.
func (s *SnapshotStore) InsertSamples(_ context.Context, samples []analytics.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, samples...)
	return nil
}

// Len returns the number of stored samples.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// matches applies the filter to one sample. Spread bounds only reject
// rows that actually carry a spread value.
func matches(sm analytics.MetricSample, filter storage.SampleFilter) bool {
	if !filter.Since.IsZero() && sm.CapturedAt.Before(filter.Since) {
		return false
	}
	if filter.Symbol != "" && sm.Symbol != filter.Symbol {
		return false
	}
	if sm.SpreadPercent != nil {
		if filter.MinSpread != nil && *sm.SpreadPercent < *filter.MinSpread {
			return false
		}
		if filter.MaxSpread != nil && *sm.SpreadPercent > *filter.MaxSpread {
			return false
		}
	}
	return true
}
