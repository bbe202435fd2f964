package analytics

import (
	"math"
	"sort"
	"time"
)

// LiquidityStatus is the three-level classification of a pair's liquidity.
type LiquidityStatus string

const (
	StatusPoor     LiquidityStatus = "poor"
	StatusModerate LiquidityStatus = "moderate"
	StatusGood     LiquidityStatus = "good"
)

// Liquidity score weighting. Spread dominates because it is the direct
// cost of trading; volume is log-compressed because raw USD volume spans
// many orders of magnitude.
const (
	spreadWeight = 0.7
	volumeWeight = 0.3
)

// Status classification thresholds, evaluated in order (first match wins).
const (
	poorSpreadThreshold     = 5.0
	poorVolumeThreshold     = 10_000.0
	moderateSpreadThreshold = 2.0
	moderateVolumeThreshold = 100_000.0
)

// LiquidityAnalysis is the per-symbol liquidity record. It is computed
// once per request, never mutated afterward, and discarded after the
// response is serialized.
type LiquidityAnalysis struct {
	Symbol              string          `json:"symbol"`
	AvgSpread           float64         `json:"avg_spread"`
	MinSpread           float64         `json:"min_spread"`
	MaxSpread           float64         `json:"max_spread"`
	MedianSpread        float64         `json:"median_spread"`
	SpreadVolatility    float64         `json:"spread_volatility"`
	CurrentSpread       float64         `json:"current_spread"`
	PreviousSpread      float64         `json:"previous_spread"`
	SpreadChangePercent float64         `json:"spread_change_percent"`
	AvgVolume24hUSD     float64         `json:"avg_volume_24h_usd"`
	LiquidityScore      float64         `json:"liquidity_score"`
	LiquidityStatus     LiquidityStatus `json:"liquidity_status"`
	SampleCount         int             `json:"sample_count"`
	LatestTimestamp     time.Time       `json:"latest_timestamp"`
}

// AggregateStats reduces a liquidity result set into corpus-wide figures
// for the dashboard header.
type AggregateStats struct {
	TotalPairsAnalyzed int          `json:"total_pairs_analyzed"`
	AvgSpreadAllPairs  float64      `json:"avg_spread_all_pairs"`
	StatusCounts       StatusCounts `json:"status_counts"`
}

// StatusCounts holds the number of pairs in each liquidity bucket.
type StatusCounts struct {
	Poor     int `json:"poor"`
	Moderate int `json:"moderate"`
	Good     int `json:"good"`
}

// AnalyzeLiquidity scores every symbol that has at least one valid spread
// sample. The spread and volume series maps are built independently from
// the same snapshot batch, so a symbol may have spread points without
// volume points; its average volume is then zero and the status rules
// classify it as poor.
//
// Records are ordered by liquidity score descending, best liquidity first,
// with symbol as the deterministic tie-break.
func AnalyzeLiquidity(spreads, volumes map[string]SymbolSeries) []LiquidityAnalysis {
	records := make([]LiquidityAnalysis, 0, len(spreads))
	for sym, series := range spreads {
		if series.Len() < 1 {
			continue
		}
		records = append(records, analyzeSymbol(series, volumes[sym]))
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].LiquidityScore != records[j].LiquidityScore {
			return records[i].LiquidityScore > records[j].LiquidityScore
		}
		return records[i].Symbol < records[j].Symbol
	})
	return records
}

// analyzeSymbol computes the full record for one symbol. The spread series
// is non-empty by the time this is called.
func analyzeSymbol(spread, volume SymbolSeries) LiquidityAnalysis {
	avgSpread := mean(spread.Values)
	avgVolume := mean(volume.Values)

	current := spread.Values[len(spread.Values)-1]
	previous := current
	if len(spread.Values) >= 2 {
		previous = spread.Values[len(spread.Values)-2]
	}

	changePct := 0.0
	if previous > 0 {
		changePct = (current - previous) / previous * 100
	}

	return LiquidityAnalysis{
		Symbol:              spread.Symbol,
		AvgSpread:           avgSpread,
		MinSpread:           minOf(spread.Values),
		MaxSpread:           maxOf(spread.Values),
		MedianSpread:        medianAtFloor(spread.Values),
		SpreadVolatility:    populationStdDev(spread.Values, avgSpread),
		CurrentSpread:       current,
		PreviousSpread:      previous,
		SpreadChangePercent: changePct,
		AvgVolume24hUSD:     avgVolume,
		LiquidityScore:      liquidityScore(avgSpread, avgVolume),
		LiquidityStatus:     classifyStatus(avgSpread, avgVolume),
		SampleCount:         spread.Len(),
		LatestTimestamp:     spread.Latest(),
	}
}

// liquidityScore blends a spread score and a log-compressed volume score
// into a composite in [0, 100]. The raw spread score goes negative past a
// 10% average spread and is clamped to zero before blending.
func liquidityScore(avgSpread, avgVolume float64) float64 {
	spreadScore := math.Max(0, 100-avgSpread*10)
	volumeScore := math.Min(100, math.Log10(avgVolume+1)*10)
	return spreadScore*spreadWeight + volumeScore*volumeWeight
}

// classifyStatus applies the ordered rule chain: a wide average spread or
// thin volume is poor, a middling one moderate, everything else good.
func classifyStatus(avgSpread, avgVolume float64) LiquidityStatus {
	switch {
	case avgSpread > poorSpreadThreshold || avgVolume < poorVolumeThreshold:
		return StatusPoor
	case avgSpread > moderateSpreadThreshold || avgVolume < moderateVolumeThreshold:
		return StatusModerate
	default:
		return StatusGood
	}
}

// Summarize reduces the analysis set to aggregate stats. It is a total
// function: an empty input produces zero counts and a zero average.
func Summarize(records []LiquidityAnalysis) AggregateStats {
	stats := AggregateStats{TotalPairsAnalyzed: len(records)}
	if len(records) == 0 {
		return stats
	}

	sum := 0.0
	for _, rec := range records {
		sum += rec.AvgSpread
		switch rec.LiquidityStatus {
		case StatusPoor:
			stats.StatusCounts.Poor++
		case StatusModerate:
			stats.StatusCounts.Moderate++
		case StatusGood:
			stats.StatusCounts.Good++
		}
	}
	stats.AvgSpreadAllPairs = sum / float64(len(records))
	return stats
}

// mean returns the arithmetic mean, or zero for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// medianAtFloor returns the value at index floor(n/2) of the ascending
// sort. For even n this is not the textbook median; the dashboard and its
// stored history already assume this selection, so it must not be
// "corrected" to an interpolated median.
func medianAtFloor(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// populationStdDev divides by n, not n-1. Snapshot batches are treated as
// the full population for the window, not a sample of one.
func populationStdDev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
