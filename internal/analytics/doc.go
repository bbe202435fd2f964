// Package analytics turns unordered collections of time-stamped market
// metric samples into ranked, scored, classified output for the dashboard.
//
// The package is the computational core of MarketPulse. It owns no I/O:
// callers fetch snapshot rows from storage, hand them to the builders and
// scorers here, and serialize the returned records. Every function is total
// over its documented input shapes — empty input produces empty output,
// zero-valued denominators are guarded, and symbols with insufficient data
// are excluded rather than reported as errors.
//
// Pipeline:
//
//	rows → BuildSeries → AnalyzeLiquidity / ClassifyTrends → RankTopMovers / Summarize
//
// All derived structures are freshly allocated per call and never shared,
// so the package needs no internal locking.
package analytics
