package analytics

import (
	"math"
	"sort"
)

// RankTopMovers filters trend records by direction label and returns the
// top limit records ordered by absolute percent change, largest first.
//
// The filter matches the label computed by ClassifyTrend rather than
// re-deriving it from the numbers, so the band threshold lives in exactly
// one place. DirectionBoth passes everything through. A limit of zero or
// less means no truncation.
//
// Symbols with equal absolute change are ordered lexically. The ordering
// is documented here because map iteration upstream is randomized and the
// engine promises byte-identical output for identical input.
func RankTopMovers(movers []TopMover, direction Direction, limit int) []TopMover {
	ranked := make([]TopMover, 0, len(movers))
	for _, m := range movers {
		if direction == DirectionBoth || m.TrendDirection == direction {
			ranked = append(ranked, m)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		ai, aj := math.Abs(ranked[i].ChangePercent), math.Abs(ranked[j].ChangePercent)
		if ai != aj {
			return ai > aj
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
