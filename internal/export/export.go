// Package export writes backtest results to the files analysts open:
// CSV and Excel for people, Parquet and JSON for tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/pretty"

	"trading-signalsv1/internal/model"
)

// Default file names written into the output directory.
const (
	TradesCSVFile  = "backtest_trades.csv"
	SummaryCSVFile = "backtest_results.csv"
	WorkbookFile   = "backtest_results.xlsx"
	TradesParquet  = "backtest_trades.parquet"
	RunJSONFile    = "backtest_run.json"
	TradesSheet    = "Trades"
	SummarySheet   = "Summary"
)

var (
	TradeHeader   = []string{"Stock", "Direction", "Entry", "Exit", "PnL", "Duration"}
	SummaryHeader = []string{"Total Trades", "Winning Trades", "Winning Rate (%)", "Total PnL", "Max Drawdown"}
)

// Options selects the optional outputs. CSV and XLSX are always written.
type Options struct {
	Dir     string
	Parquet bool
	JSON    bool
}

// Price formats a price or PnL with two decimals.
func Price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// WinRate formats a percentage as "xx.xx%".
func WinRate(pct float64) string {
	return decimal.NewFromFloat(pct).StringFixed(2) + "%"
}

// Duration renders a holding period as "D days HH:MM:SS".
func Duration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d days %02d:%02d:%02d", days, h, m, d/time.Second)
}

func tradeRecord(t model.Trade) []string {
	return []string{t.Symbol, t.Direction.Label(), Price(t.Entry), Price(t.Exit), Price(t.PnL), Duration(t.Duration)}
}

func summaryRecord(s model.Summary) []string {
	return []string{
		fmt.Sprint(s.TotalTrades),
		fmt.Sprint(s.WinningTrades),
		WinRate(s.WinRate),
		Price(s.TotalPnL),
		Price(s.MaxDrawdown),
	}
}

// TradesCSV writes one row per closed trade. The header is written even when
// there are no trades.
func TradesCSV(w io.Writer, trades []model.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(tradeRecord(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SummaryCSV writes the single-row summary table.
func SummaryCSV(w io.Writer, s model.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll([][]string{SummaryHeader, summaryRecord(s)}); err != nil {
		return err
	}
	return cw.Error()
}

// RunJSON renders the run and its trades as indented JSON.
func RunJSON(run model.BacktestRun, trades []model.Trade) ([]byte, error) {
	data, err := json.Marshal(struct {
		Run    model.BacktestRun `json:"run"`
		Trades []model.Trade     `json:"trades"`
	}{run, trades})
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(data), nil
}

// WriteAll writes every selected output into opts.Dir and returns the paths
// in the order they were written.
func WriteAll(opts Options, run model.BacktestRun, trades []model.Trade) ([]string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	var written []string
	writeFile := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("export %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := writeFile(TradesCSVFile, func(w io.Writer) error { return TradesCSV(w, trades) }); err != nil {
		return written, err
	}
	if err := writeFile(SummaryCSVFile, func(w io.Writer) error { return SummaryCSV(w, run.Summary) }); err != nil {
		return written, err
	}
	if err := writeFile(WorkbookFile, func(w io.Writer) error { return WriteWorkbook(w, trades, run.Summary) }); err != nil {
		return written, err
	}
	if opts.Parquet {
		path := filepath.Join(dir, TradesParquet)
		if err := WriteParquet(path, trades); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if opts.JSON {
		data, err := RunJSON(run, trades)
		if err != nil {
			return written, err
		}
		if err := writeFile(RunJSONFile, func(w io.Writer) error { _, err := w.Write(data); return err }); err != nil {
			return written, err
		}
	}
	return written, nil
}
