package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/strategy"
)

// breakoutBars builds a series with exactly one long round trip:
//
//	bar 0      price 50, volume 10000 (anchors VWAP near 50)
//	bars 1-21  price 100 falling by 1, volume 1 (RSI drops to 0)
//	bar 22     price 79, volume 5 (surge above avg 1.2, close > VWAP) -> long entry
//	bar 23     price 40, volume 1 (close < VWAP) -> exit, pnl -39
func breakoutBars(symbol string) []model.Bar {
	t0 := time.Date(2025, 9, 1, 3, 45, 0, 0, time.UTC)
	mk := func(i int, p, v float64) model.Bar {
		return model.Bar{Symbol: symbol, TS: t0.Add(time.Duration(i) * 15 * time.Minute), Open: p, High: p, Low: p, Close: p, Volume: v}
	}
	bars := []model.Bar{mk(0, 50, 10000)}
	for i := 1; i <= 21; i++ {
		bars = append(bars, mk(i, float64(101-i), 1))
	}
	bars = append(bars, mk(22, 79, 5), mk(23, 40, 1))
	return bars
}

func TestReplay_SingleLongRoundTrip(t *testing.T) {
	eng, _ := indicator.NewEngine(indicator.DefaultConfig())
	trades, open, err := Replay(eng, strategy.DefaultBreakoutConfig(), "TEST", breakoutBars("TEST"))
	if err != nil {
		t.Fatal(err)
	}
	if open {
		t.Error("position should be closed")
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1: %+v", len(trades), trades)
	}
	tr := trades[0]
	if tr.Direction != model.DirectionLong {
		t.Errorf("direction = %s", tr.Direction)
	}
	assertClose(t, "entry", tr.Entry, 79, 1e-9)
	assertClose(t, "exit", tr.Exit, 40, 1e-9)
	assertClose(t, "pnl", tr.PnL, -39, 1e-9)
	if tr.Duration != 15*time.Minute {
		t.Errorf("duration = %s", tr.Duration)
	}
}

func TestReplay_OpenPositionNotClosed(t *testing.T) {
	eng, _ := indicator.NewEngine(indicator.DefaultConfig())
	bars := breakoutBars("TEST")
	trades, open, err := Replay(eng, strategy.DefaultBreakoutConfig(), "TEST", bars[:23])
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 0 || !open {
		t.Errorf("trades=%d open=%v, want 0/true", len(trades), open)
	}
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) FetchBars(_ context.Context, symbol string, _ marketdata.Range) ([]model.Bar, error) {
	if symbol == "BAD.NS" {
		return nil, fmt.Errorf("fake %s: %w", symbol, marketdata.ErrNoData)
	}
	return breakoutBars(symbol), nil
}

type fakeRunStore struct {
	run    model.BacktestRun
	trades []model.Trade
}

func (f *fakeRunStore) SaveRun(_ context.Context, run model.BacktestRun, trades []model.Trade) error {
	f.run, f.trades = run, trades
	return nil
}

type alertLog struct{ alerts []notification.Alert }

func (a *alertLog) Send(_ context.Context, al notification.Alert) error {
	a.alerts = append(a.alerts, al)
	return nil
}

func TestRunner_Run(t *testing.T) {
	store := &fakeRunStore{}
	alerts := &alertLog{}
	r, err := NewRunner(Config{
		Range:      marketdata.MustRange("1y", "15m"),
		Indicators: indicator.DefaultConfig(),
		Rules:      strategy.DefaultBreakoutConfig(),
		Workers:    2,
	}, fakeProvider{}, alerts, store)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background(), []string{"A.NS", "BAD.NS", "B.NS"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 2 || res.Trades[0].Symbol != "A.NS" || res.Trades[1].Symbol != "B.NS" {
		t.Fatalf("trades not in symbol order: %+v", res.Trades)
	}
	if len(res.Run.Failed) != 1 || res.Run.Failed[0] != "BAD.NS" {
		t.Errorf("failed = %v", res.Run.Failed)
	}
	if !errors.Is(res.Symbols[1].Err, marketdata.ErrNoData) || res.Symbols[1].Error == "" {
		t.Errorf("per-symbol error not recorded: %+v", res.Symbols[1])
	}
	s := res.Run.Summary
	if s.TotalTrades != 2 || s.WinningTrades != 0 {
		t.Errorf("summary = %+v", s)
	}
	assertClose(t, "total pnl", s.TotalPnL, -78, 1e-9)
	assertClose(t, "drawdown", s.MaxDrawdown, 39, 1e-9)

	if store.run.ID != res.Run.ID || len(store.trades) != 2 {
		t.Error("run not persisted")
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Title != "Backtest started" {
		t.Errorf("alerts = %+v", alerts.alerts)
	}
	r.Finished(context.Background(), res, []string{"out.csv"})
	if len(alerts.alerts) != 2 {
		t.Error("finish alert not sent")
	}
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := Config{Range: marketdata.MustRange("1y", "15m"), Indicators: indicator.DefaultConfig(), Rules: strategy.DefaultBreakoutConfig()}
	cfg.Rules.RiskReward = 0
	if _, err := NewRunner(cfg, fakeProvider{}, nil, nil); !errors.Is(err, indicator.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
