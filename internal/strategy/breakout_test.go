package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

var t0 = time.Date(2025, 9, 1, 9, 15, 0, 0, time.UTC)

type row struct {
	close, vwap, rsi, vol, volAvg float64
}

func seriesOf(rows ...row) *indicator.Series {
	s := &indicator.Series{}
	for i, r := range rows {
		s.Bars = append(s.Bars, model.Bar{
			Symbol: "TEST",
			TS:     t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   r.close, High: r.close, Low: r.close, Close: r.close, Volume: r.vol,
		})
		s.VWAP = append(s.VWAP, r.vwap)
		s.RSI = append(s.RSI, r.rsi)
		s.VolumeAvg = append(s.VolumeAvg, r.volAvg)
		s.SMA = append(s.SMA, r.close)
		s.EMA = append(s.EMA, r.close)
	}
	return s
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func newBreakout(t *testing.T, track bool) *Breakout {
	t.Helper()
	cfg := DefaultBreakoutConfig()
	cfg.TrackOpenPosition = track
	b, err := NewBreakout(cfg)
	if err != nil {
		t.Fatalf("NewBreakout: %v", err)
	}
	return b
}

// ────────────────────────────────────────────────────────────
// Classification
// ────────────────────────────────────────────────────────────

func TestBreakout_LongLevels(t *testing.T) {
	// stop = 100*(1-0.005) = 99.5, risk = 105-99.5 = 5.5, target = 105+11 = 116
	b := newBreakout(t, false)
	sig, err := b.Evaluate("TEST", seriesOf(row{105, 100, 25, 150, 100}), -1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sig.Action != ActionEntry || sig.Direction != model.DirectionLong {
		t.Fatalf("got %s/%s, want ENTRY/LONG", sig.Action, sig.Direction)
	}
	assertClose(t, "entry", sig.Entry, 105, 1e-9)
	assertClose(t, "stop", sig.StopLoss, 99.5, 1e-9)
	assertClose(t, "target", sig.Target, 116, 1e-9)
}

func TestBreakout_ShortLevels(t *testing.T) {
	// stop = 100*1.005 = 100.5, risk = 100.5-95 = 5.5, target = 95-11 = 84
	b := newBreakout(t, false)
	sig, err := b.Evaluate("TEST", seriesOf(row{95, 100, 75, 150, 100}), 0)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sig.Direction != model.DirectionShort {
		t.Fatalf("direction = %s, want SHORT", sig.Direction)
	}
	assertClose(t, "stop", sig.StopLoss, 100.5, 1e-9)
	assertClose(t, "target", sig.Target, 84, 1e-9)
}

func TestBreakout_AllConditionsRequired(t *testing.T) {
	b := newBreakout(t, false)
	tests := []struct {
		name string
		r    row
	}{
		{"price below vwap", row{99, 100, 25, 150, 100}},
		{"rsi not oversold", row{105, 100, 30, 150, 100}},
		{"no volume surge", row{105, 100, 25, 100, 100}},
		{"short without surge", row{95, 100, 75, 90, 100}},
		{"short rsi at 70", row{95, 100, 70, 150, 100}},
		{"price at vwap", row{100, 100, 25, 150, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := b.Evaluate("TEST", seriesOf(tt.r), -1)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if sig.Direction != model.DirectionNeutral || sig.Action != ActionNone {
				t.Errorf("got %s/%s, want NONE/NEUTRAL", sig.Action, sig.Direction)
			}
		})
	}
}

func TestBreakout_UndefinedValue(t *testing.T) {
	b := newBreakout(t, false)
	_, err := b.Evaluate("TEST", seriesOf(row{105, math.NaN(), 25, 150, 100}), -1)
	if !errors.Is(err, ErrUndefinedValue) {
		t.Fatalf("err = %v, want ErrUndefinedValue", err)
	}
}

func TestBreakout_EmptySeries(t *testing.T) {
	b := newBreakout(t, false)
	_, err := b.Evaluate("TEST", &indicator.Series{}, -1)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

// ────────────────────────────────────────────────────────────
// Position tracking
// ────────────────────────────────────────────────────────────

func TestBreakout_LiveModeResignals(t *testing.T) {
	b := newBreakout(t, false)
	s := seriesOf(row{105, 100, 25, 150, 100}, row{106, 100, 20, 200, 100})
	for i := 0; i < s.Len(); i++ {
		sig, err := b.Evaluate("TEST", s, i)
		if err != nil {
			t.Fatalf("Evaluate(%d): %v", i, err)
		}
		if !sig.IsEntry() {
			t.Errorf("bar %d: expected entry with tracking off", i)
		}
	}
	if _, ok := b.Open("TEST"); ok {
		t.Error("live mode must not track positions")
	}
}

func TestBreakout_TrackingSuppressesAndExits(t *testing.T) {
	b := newBreakout(t, true)
	s := seriesOf(
		row{105, 100, 25, 150, 100}, // long entry
		row{106, 100, 20, 200, 100}, // would re-enter: suppressed
		row{99, 100, 50, 100, 100},  // close < vwap: exit
		row{98, 100, 50, 100, 100},  // flat again
	)
	var actions []Action
	var exit Signal
	for i := 0; i < s.Len(); i++ {
		sig, err := b.Evaluate("TEST", s, i)
		if err != nil {
			t.Fatalf("Evaluate(%d): %v", i, err)
		}
		actions = append(actions, sig.Action)
		if sig.Action == ActionExit {
			exit = sig
		}
	}
	want := []Action{ActionEntry, ActionNone, ActionExit, ActionNone}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("bar %d: action %s, want %s", i, actions[i], want[i])
		}
	}
	if exit.Trade == nil {
		t.Fatal("exit without trade")
	}
	assertClose(t, "pnl", exit.Trade.PnL, 99-105, 1e-9)
	if exit.Trade.Duration != 30*time.Minute {
		t.Errorf("duration = %s, want 30m", exit.Trade.Duration)
	}
}

func TestBreakout_ShortExitPnL(t *testing.T) {
	b := newBreakout(t, true)
	s := seriesOf(row{95, 100, 75, 150, 100}, row{101, 100, 50, 100, 100})
	if _, err := b.Evaluate("TEST", s, 0); err != nil {
		t.Fatal(err)
	}
	sig, err := b.Evaluate("TEST", s, 1)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Action != ActionExit || sig.Trade == nil {
		t.Fatalf("expected exit, got %+v", sig)
	}
	assertClose(t, "short pnl", sig.Trade.PnL, 95-101, 1e-9)
}

func TestBreakoutConfig_Validate(t *testing.T) {
	bad := []func(*BreakoutConfig){
		func(c *BreakoutConfig) { c.VolumeMultiplier = -1 },
		func(c *BreakoutConfig) { c.StopBuffer = -0.1 },
		func(c *BreakoutConfig) { c.RiskReward = 0 },
		func(c *BreakoutConfig) { c.Oversold = 80 },
	}
	for i, mut := range bad {
		cfg := DefaultBreakoutConfig()
		mut(&cfg)
		if _, err := NewBreakout(cfg); !errors.Is(err, indicator.ErrInvalidConfig) {
			t.Errorf("case %d: err = %v, want ErrInvalidConfig", i, err)
		}
	}
}
