package export

import (
	"github.com/parquet-go/parquet-go"

	"trading-signalsv1/internal/model"
)

// TradeRow is the flat Parquet layout of a closed trade.
type TradeRow struct {
	Stock       string  `parquet:"stock"`
	Direction   string  `parquet:"direction"`
	Entry       float64 `parquet:"entry"`
	Exit        float64 `parquet:"exit"`
	PnL         float64 `parquet:"pnl"`
	EntryTimeMs int64   `parquet:"entry_time_ms"`
	ExitTimeMs  int64   `parquet:"exit_time_ms"`
	DurationSec int64   `parquet:"duration_sec"`
}

func tradeRows(trades []model.Trade) []TradeRow {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			Stock:       t.Symbol,
			Direction:   t.Direction.Label(),
			Entry:       t.Entry,
			Exit:        t.Exit,
			PnL:         t.PnL,
			EntryTimeMs: t.EntryTime.UnixMilli(),
			ExitTimeMs:  t.ExitTime.UnixMilli(),
			DurationSec: int64(t.Duration.Seconds()),
		}
	}
	return rows
}

// WriteParquet writes trades to path.
func WriteParquet(path string, trades []model.Trade) error {
	return parquet.WriteFile(path, tradeRows(trades))
}

// ReadParquet loads rows written by WriteParquet.
func ReadParquet(path string) ([]TradeRow, error) {
	return parquet.ReadFile[TradeRow](path)
}
