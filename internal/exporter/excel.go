// Package exporter renders analytics results as downloadable report files.
package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"marketpulse/internal/analytics"
)

const (
	analysisSheet = "Liquidity"
	summarySheet  = "Summary"
)

var analysisHeader = []string{
	"Symbol", "Avg Spread %", "Median Spread %", "Spread Volatility",
	"Avg Volume USD", "Liquidity Score", "Status", "Samples",
}

// LiquidityWorkbook renders a liquidity analysis into an xlsx workbook
// with one row per symbol and a summary sheet of the aggregate stats.
func LiquidityWorkbook(records []analytics.LiquidityAnalysis, stats analytics.AggregateStats, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", analysisSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, title := range analysisHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(analysisSheet, cell, title); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(analysisHeader), 1)
	if err := f.SetCellStyle(analysisSheet, "A1", endHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.Symbol,
			rec.AvgSpread,
			rec.MedianSpread,
			rec.SpreadVolatility,
			rec.AvgVolume24hUSD,
			rec.LiquidityScore,
			string(rec.LiquidityStatus),
			rec.SampleCount,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(analysisSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(analysisSheet, "A", "H", 16); err != nil {
		return nil, fmt.Errorf("set column widths: %w", err)
	}

	if err := writeSummary(f, stats, generatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteLiquidityReport renders the workbook and writes it to w.
func WriteLiquidityReport(w io.Writer, records []analytics.LiquidityAnalysis, stats analytics.AggregateStats, generatedAt time.Time) error {
	f, err := LiquidityWorkbook(records, stats, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeSummary fills the aggregate stats sheet.
func writeSummary(f *excelize.File, stats analytics.AggregateStats, generatedAt time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]any{
		{"Generated At", generatedAt.UTC().Format(time.RFC3339)},
		{"Pairs Analyzed", stats.TotalPairsAnalyzed},
		{"Avg Spread All Pairs %", stats.AvgSpreadAllPairs},
		{"Poor", stats.StatusCounts.Poor},
		{"Moderate", stats.StatusCounts.Moderate},
		{"Good", stats.StatusCounts.Good},
	}
	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return fmt.Errorf("write summary row %d: %w", i+1, err)
			}
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "B", 24); err != nil {
		return fmt.Errorf("set summary column widths: %w", err)
	}
	return nil
}
