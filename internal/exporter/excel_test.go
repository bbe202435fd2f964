package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"marketpulse/internal/analytics"
)

func sampleRecords() []analytics.LiquidityAnalysis {
	return []analytics.LiquidityAnalysis{
		{
			Symbol:           "BTC/USDT",
			AvgSpread:        0.2,
			MedianSpread:     0.18,
			SpreadVolatility: 0.05,
			AvgVolume24hUSD:  2_000_000,
			LiquidityScore:   91.4,
			LiquidityStatus:  analytics.StatusGood,
			SampleCount:      12,
		},
		{
			Symbol:           "ALT/USDT",
			AvgSpread:        8.5,
			MedianSpread:     8.0,
			SpreadVolatility: 1.2,
			AvgVolume24hUSD:  4_000,
			LiquidityScore:   11.3,
			LiquidityStatus:  analytics.StatusPoor,
			SampleCount:      12,
		},
	}
}

// TestLiquidityWorkbook tests sheet layout and cell contents.
func TestLiquidityWorkbook(t *testing.T) {
	stats := analytics.AggregateStats{
		TotalPairsAnalyzed: 2,
		AvgSpreadAllPairs:  4.35,
		StatusCounts:       analytics.StatusCounts{Poor: 1, Good: 1},
	}
	generatedAt := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)

	f, err := LiquidityWorkbook(sampleRecords(), stats, generatedAt)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Liquidity", "Summary"}, f.GetSheetList())

	header, err := f.GetCellValue("Liquidity", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Symbol", header)

	symbol, err := f.GetCellValue("Liquidity", "A2")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", symbol)

	status, err := f.GetCellValue("Liquidity", "G3")
	require.NoError(t, err)
	assert.Equal(t, "poor", status)

	pairs, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", pairs)

	ts, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-20T09:30:00Z", ts)
}

// TestWriteLiquidityReport tests that the stream round-trips as a
// readable workbook.
func TestWriteLiquidityReport(t *testing.T) {
	var buf bytes.Buffer
	err := WriteLiquidityReport(&buf, sampleRecords(), analytics.AggregateStats{TotalPairsAnalyzed: 2}, time.Now())
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Liquidity")
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus two records")
}

// TestEmptyWorkbook tests rendering with no records.
func TestEmptyWorkbook(t *testing.T) {
	f, err := LiquidityWorkbook(nil, analytics.AggregateStats{}, time.Now())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Liquidity")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
