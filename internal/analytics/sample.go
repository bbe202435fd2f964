package analytics

import "time"

// Metric selects which sample field feeds a series.
type Metric string

const (
	// MetricVolume selects the 24h USD volume field.
	MetricVolume Metric = "volume"
	// MetricPrice selects the daily change percent field. The value is
	// itself a percent figure, which changes how trend deltas are computed.
	MetricPrice Metric = "price"
	// MetricSpread selects the bid/ask spread percent field.
	MetricSpread Metric = "spread"
)

// Valid reports whether the metric is one of the supported selectors.
func (m Metric) Valid() bool {
	switch m {
	case MetricVolume, MetricPrice, MetricSpread:
		return true
	}
	return false
}

// Direction is the coarse trend label derived from the ±5% change band.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
	// DirectionBoth is only meaningful as a filter value.
	DirectionBoth Direction = "both"
)

// Valid reports whether the direction is usable as a top-movers filter.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionBoth:
		return true
	}
	return false
}

// MetricSample is one (symbol, timestamp, metric-value-set) observation
// written by the snapshot collector. Numeric fields are pointers because
// an upstream source may simply not have a value for a field in a given
// observation; absent must stay distinguishable from a legitimate zero.
type MetricSample struct {
	Symbol             string    `json:"symbol"`
	CapturedAt         time.Time `json:"captured_at"`
	SpreadPercent      *float64  `json:"spread_percent,omitempty"`
	Volume24hUSD       *float64  `json:"volume_24h_usd,omitempty"`
	LastPrice          *float64  `json:"last_price,omitempty"`
	DailyChangePercent *float64  `json:"daily_change_percent,omitempty"`
}

// MetricValue returns the sample's value for the given metric and whether
// the field was present in the observation.
func (s MetricSample) MetricValue(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricVolume:
		p = s.Volume24hUSD
	case MetricPrice:
		p = s.DailyChangePercent
	case MetricSpread:
		p = s.SpreadPercent
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SymbolSeries holds one symbol's values for a single metric in
// chronological order, oldest first, with a parallel timestamp slice.
// Series are built fresh per request and never persisted.
type SymbolSeries struct {
	Symbol     string
	Values     []float64
	Timestamps []time.Time
}

// Len returns the number of points in the series.
func (s SymbolSeries) Len() int { return len(s.Values) }

// Latest returns the most recent timestamp, or the zero time for an
// empty series.
func (s SymbolSeries) Latest() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}
