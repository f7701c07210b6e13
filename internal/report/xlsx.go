package report

import (
	"io"

	"trading-signalsv1/internal/export"
)

const (
	WorkbookFile = "stock_analysis.xlsx"
	SheetName    = "Trade_Recommendations"
)

var recommendationHeader = []string{"Stock", "Trade Recommendation"}

// WriteWorkbook writes the recommendation table as a one-sheet workbook.
func WriteWorkbook(w io.Writer, rep *Report) error {
	f, err := export.NewWorkbook(SheetName)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteSheet(f, SheetName, recommendationHeader, rep.Rows()); err != nil {
		return err
	}
	return f.Write(w)
}
