package analytics

// BuildSeries groups an unordered batch of snapshot rows into per-symbol
// chronological series for one metric. Rows arrive from storage sorted
// descending by captured_at, so each accumulated series is reversed into
// oldest-first order before it is returned.
//
// A row whose field for the requested metric is absent contributes nothing
// to that symbol's series, but the same row still counts when building a
// series for a different metric. Duplicate timestamps are kept: two
// snapshots of the same symbol at the same instant contribute two points.
// De-duplication would silently change averages and volatility, so it is
// deliberately not performed here.
//
// Empty input yields an empty map, which every downstream stage treats as
// an empty result rather than an error.
func BuildSeries(rows []MetricSample, m Metric) map[string]SymbolSeries {
	series := make(map[string]SymbolSeries)
	for _, row := range rows {
		v, ok := row.MetricValue(m)
		if !ok {
			continue
		}
		s := series[row.Symbol]
		s.Symbol = row.Symbol
		s.Values = append(s.Values, v)
		s.Timestamps = append(s.Timestamps, row.CapturedAt)
		series[row.Symbol] = s
	}
	for sym, s := range series {
		reverseSeries(s)
		series[sym] = s
	}
	return series
}

// reverseSeries flips values and timestamps in place, turning the storage
// order (newest first) into chronological order (oldest first).
func reverseSeries(s SymbolSeries) {
	for i, j := 0, len(s.Values)-1; i < j; i, j = i+1, j-1 {
		s.Values[i], s.Values[j] = s.Values[j], s.Values[i]
		s.Timestamps[i], s.Timestamps[j] = s.Timestamps[j], s.Timestamps[i]
	}
}
