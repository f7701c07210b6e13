package backtest

import (
	"sync"

	"gonum.org/v1/gonum/floats"

	"trading-signalsv1/internal/model"
)

// Ledger collects closed trades in emission order and summarizes them.
type Ledger struct {
	mu     sync.RWMutex
	trades []model.Trade
}

func NewLedger() *Ledger {
	return &Ledger{trades: make([]model.Trade, 0, 256)}
}

// Record appends closed trades.
func (l *Ledger) Record(trades ...model.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, trades...)
}

// Trades returns a snapshot of all trades.
func (l *Ledger) Trades() []model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]model.Trade, len(l.trades))
	copy(cp, l.trades)
	return cp
}

// Summary computes the aggregate statistics of the recorded trades.
func (l *Ledger) Summary() model.Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Summarize(l.trades)
}

// Summarize counts winners (pnl > 0), sums pnl and measures max drawdown of
// the cumulative pnl curve. Every field is zero when there are no trades.
func Summarize(trades []model.Trade) model.Summary {
	if len(trades) == 0 {
		return model.Summary{}
	}
	pnl := make([]float64, len(trades))
	wins := 0
	for i, t := range trades {
		pnl[i] = t.PnL
		if t.PnL > 0 {
			wins++
		}
	}
	return model.Summary{
		TotalTrades:   len(trades),
		WinningTrades: wins,
		WinRate:       float64(wins) / float64(len(trades)) * 100,
		TotalPnL:      floats.Sum(pnl),
		MaxDrawdown:   MaxDrawdown(pnl),
	}
}

// MaxDrawdown returns max(cummax(cum) - cum) where cum is the running sum of
// pnl. The running peak starts at the first cumulative value, not at zero.
func MaxDrawdown(pnl []float64) float64 {
	if len(pnl) == 0 {
		return 0
	}
	cum := floats.CumSum(make([]float64, len(pnl)), pnl)
	peak := cum[0]
	var dd float64
	for _, v := range cum {
		if v > peak {
			peak = v
		}
		if d := peak - v; d > dd {
			dd = d
		}
	}
	return dd
}
