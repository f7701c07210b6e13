package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These decouple the monitor, backtester and report from concrete data
// sources and sinks (Yahoo, Alpaca, SQLite, CSV files).

// TradeLogWriter appends live signal rows. Implementations never rewrite
// previously written rows.
type TradeLogWriter interface {
	Append(ctx context.Context, entry TradeLogEntry) error
	Close() error
}

// BarStore persists and reads historical bars.
type BarStore interface {
	// SaveBars upserts bars keyed by (symbol, interval, ts).
	SaveBars(ctx context.Context, interval string, bars []Bar) error

	// ReadBars returns bars for symbol/interval with ts >= from, oldest first.
	ReadBars(ctx context.Context, symbol, interval string, from time.Time) ([]Bar, error)
}
