package model

import "time"

// Position is an open backtest position. At most one exists per instrument.
type Position struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"` // LONG or SHORT
	Entry     float64   `json:"entry"`
	EntryTime time.Time `json:"entry_time"`
}

// PnL returns the per-unit profit of closing the position at price.
func (p *Position) PnL(price float64) float64 {
	if p.Direction == DirectionShort {
		return p.Entry - price
	}
	return price - p.Entry
}

// Close turns the position into a completed Trade.
func (p *Position) Close(price float64, ts time.Time) Trade {
	return Trade{
		Symbol:    p.Symbol,
		Direction: p.Direction,
		Entry:     p.Entry,
		Exit:      price,
		PnL:       p.PnL(price),
		EntryTime: p.EntryTime,
		ExitTime:  ts,
		Duration:  ts.Sub(p.EntryTime),
	}
}
