package model

import (
	"context"
	"time"
)

// Summary aggregates the closed trades of a backtest.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"` // percent, 0 when there are no trades
	TotalPnL      float64 `json:"total_pnl"`
	MaxDrawdown   float64 `json:"max_drawdown"`
}

// BacktestRun describes one backtest invocation.
type BacktestRun struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Period     string    `json:"period"`
	Interval   string    `json:"interval"`
	Symbols    []string  `json:"symbols"`
	Failed     []string  `json:"failed,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    Summary   `json:"summary"`
}

// RunStore persists finished backtests together with their trades.
type RunStore interface {
	SaveRun(ctx context.Context, run BacktestRun, trades []Trade) error
}
