package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"trading-signalsv1/internal/model"
)

// WriteSheet fills sheet with a header row followed by rows, creating the
// sheet when it does not exist yet.
func WriteSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// NewWorkbook returns an empty workbook whose default sheet is renamed to
// first.
func NewWorkbook(first string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Workbook builds the Trades and Summary sheets. Numbers stay numeric so
// spreadsheet formulas work on them.
func Workbook(trades []model.Trade, s model.Summary) (*excelize.File, error) {
	f, err := NewWorkbook(TradesSheet)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(trades))
	for i, t := range trades {
		rows[i] = []any{t.Symbol, t.Direction.Label(), round2(t.Entry), round2(t.Exit), round2(t.PnL), Duration(t.Duration)}
	}
	if err := WriteSheet(f, TradesSheet, TradeHeader, rows); err != nil {
		f.Close()
		return nil, err
	}
	summary := [][]any{{s.TotalTrades, s.WinningTrades, WinRate(s.WinRate), round2(s.TotalPnL), round2(s.MaxDrawdown)}}
	if err := WriteSheet(f, SummarySheet, SummaryHeader, summary); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteWorkbook streams the workbook to w.
func WriteWorkbook(w io.Writer, trades []model.Trade, s model.Summary) error {
	f, err := Workbook(trades, s)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func round2(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return r
}
