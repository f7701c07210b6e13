package backtest

import (
	"math"
	"testing"

	"trading-signalsv1/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func tradesWith(pnl ...float64) []model.Trade {
	out := make([]model.Trade, len(pnl))
	for i, p := range pnl {
		out[i] = model.Trade{Symbol: "T", Direction: model.DirectionLong, Entry: 100, Exit: 100 + p, PnL: p}
	}
	return out
}

func TestSummarize(t *testing.T) {
	// pnl 5, -2, -4, 6, -1
	// cum 5, 3, -1, 5, 4 ; peak 5 throughout ; drawdown max = 5-(-1) = 6
	s := Summarize(tradesWith(5, -2, -4, 6, -1))
	if s.TotalTrades != 5 || s.WinningTrades != 2 {
		t.Errorf("counts = %d/%d", s.TotalTrades, s.WinningTrades)
	}
	assertClose(t, "win rate", s.WinRate, 40, 1e-9)
	assertClose(t, "total pnl", s.TotalPnL, 4, 1e-9)
	assertClose(t, "max drawdown", s.MaxDrawdown, 6, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (model.Summary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestMaxDrawdown_PeakStartsAtFirstTrade(t *testing.T) {
	// cum -3, -5: peak -3, drawdown 2 (not 5)
	assertClose(t, "first-loss drawdown", MaxDrawdown([]float64{-3, -2}), 2, 1e-9)
	assertClose(t, "monotonic gains", MaxDrawdown([]float64{1, 2, 3}), 0, 0)
}

func TestSummarize_ZeroPnLIsNotAWin(t *testing.T) {
	s := Summarize(tradesWith(0, 0, 1))
	if s.WinningTrades != 1 {
		t.Errorf("winning = %d, want 1", s.WinningTrades)
	}
}

func TestLedger_RecordAndSnapshot(t *testing.T) {
	l := NewLedger()
	l.Record(tradesWith(1, 2)...)
	snap := l.Trades()
	snap[0].PnL = 99
	if l.Trades()[0].PnL != 1 {
		t.Error("Trades must return a copy")
	}
	assertClose(t, "ledger pnl", l.Summary().TotalPnL, 3, 1e-9)
}
