package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mover(symbol string, changePct float64, dir Direction) TopMover {
	return TopMover{Symbol: symbol, ChangePercent: changePct, TrendDirection: dir}
}

// TestRankTopMovers tests direction filtering, ordering, and truncation.
func TestRankTopMovers(t *testing.T) {
	movers := []TopMover{
		mover("A/USDT", 12, DirectionUp),
		mover("B/USDT", -40, DirectionDown),
		mover("C/USDT", 3, DirectionStable),
		mover("D/USDT", 25, DirectionUp),
		mover("E/USDT", -25, DirectionDown),
	}

	t.Run("both keeps everything ordered by absolute change", func(t *testing.T) {
		ranked := RankTopMovers(movers, DirectionBoth, 0)
		require.Len(t, ranked, 5)

		symbols := make([]string, 0, len(ranked))
		for _, m := range ranked {
			symbols = append(symbols, m.Symbol)
		}
		// |−40|, then the 25/−25 tie broken lexically, then 12, then 3.
		assert.Equal(t, []string{"B/USDT", "D/USDT", "E/USDT", "A/USDT", "C/USDT"}, symbols)
	})

	t.Run("up filter matches the label only", func(t *testing.T) {
		ranked := RankTopMovers(movers, DirectionUp, 0)
		require.Len(t, ranked, 2)
		for _, m := range ranked {
			assert.Equal(t, DirectionUp, m.TrendDirection)
		}
	})

	t.Run("down filter matches the label only", func(t *testing.T) {
		ranked := RankTopMovers(movers, DirectionDown, 0)
		require.Len(t, ranked, 2)
		for _, m := range ranked {
			assert.Equal(t, DirectionDown, m.TrendDirection)
		}
	})

	t.Run("limit truncates after ordering", func(t *testing.T) {
		ranked := RankTopMovers(movers, DirectionBoth, 2)
		require.Len(t, ranked, 2)
		assert.Equal(t, "B/USDT", ranked[0].Symbol)
		assert.Equal(t, "D/USDT", ranked[1].Symbol)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, RankTopMovers(nil, DirectionBoth, 10))
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		before := make([]TopMover, len(movers))
		copy(before, movers)

		RankTopMovers(movers, DirectionBoth, 1)
		assert.Equal(t, before, movers)
	})
}
