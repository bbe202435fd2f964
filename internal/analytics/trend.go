package analytics

import "time"

// trendBandPercent is the fixed ±5% band separating up/down from stable.
// It is a design constant, not configuration.
const trendBandPercent = 5.0

// TopMover is the per-symbol trend record for a chosen metric.
type TopMover struct {
	Symbol              string    `json:"symbol"`
	CurrentValue        float64   `json:"current_value"`
	PreviousValue       float64   `json:"previous_value"`
	EarliestValue       float64   `json:"earliest_value"`
	ChangePercent       float64   `json:"change_percent"`
	AbsoluteChange      float64   `json:"absolute_change"`
	PeriodChangePercent float64   `json:"period_change_percent"`
	TrendDirection      Direction `json:"trend_direction"`
	SampleCount         int       `json:"sample_count"`
	LatestTimestamp     time.Time `json:"latest_timestamp"`
}

// ClassifyTrend labels one symbol's trend from its two most recent points
// and the full-period endpoints. A series with fewer than two points
// cannot express a trend; ok is false and no record is emitted.
//
// How the change figures are derived depends on the metric kind. Volume
// and spread series hold raw magnitudes, so the change is a guarded
// percent delta between the last two points. Price series hold the daily
// change percent itself, so current is already the figure the dashboard
// wants: change_percent and absolute_change pass it through untouched
// rather than deriving a delta of a delta.
func ClassifyTrend(series SymbolSeries, m Metric) (TopMover, bool) {
	if series.Len() < 2 {
		return TopMover{}, false
	}

	current := series.Values[len(series.Values)-1]
	previous := series.Values[len(series.Values)-2]
	earliest := series.Values[0]

	var changePct, absChange float64
	if m == MetricPrice {
		changePct = current
		absChange = current
	} else {
		changePct = guardedChangePercent(current, previous)
		absChange = current - previous
	}

	return TopMover{
		Symbol:              series.Symbol,
		CurrentValue:        current,
		PreviousValue:       previous,
		EarliestValue:       earliest,
		ChangePercent:       changePct,
		AbsoluteChange:      absChange,
		PeriodChangePercent: guardedChangePercent(current, earliest),
		TrendDirection:      classifyDirection(changePct),
		SampleCount:         series.Len(),
		LatestTimestamp:     series.Latest(),
	}, true
}

// ClassifyTrends runs ClassifyTrend over every series in the batch,
// skipping symbols with fewer than two points. Ordering is left to
// RankTopMovers.
func ClassifyTrends(series map[string]SymbolSeries, m Metric) []TopMover {
	movers := make([]TopMover, 0, len(series))
	for _, s := range series {
		if mover, ok := ClassifyTrend(s, m); ok {
			movers = append(movers, mover)
		}
	}
	return movers
}

// guardedChangePercent computes (current-base)/base*100 without dividing
// by zero. A move from nothing to something is pinned at exactly 100; no
// movement from nothing stays 0.
func guardedChangePercent(current, base float64) float64 {
	switch {
	case base > 0:
		return (current - base) / base * 100
	case current > 0:
		return 100
	default:
		return 0
	}
}

// classifyDirection maps a percent change onto the ternary trend label.
func classifyDirection(changePct float64) Direction {
	switch {
	case changePct > trendBandPercent:
		return DirectionUp
	case changePct < -trendBandPercent:
		return DirectionDown
	default:
		return DirectionStable
	}
}
