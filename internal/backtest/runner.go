// Package backtest replays rule set A over historical bars and summarizes
// the resulting round trips.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/strategy"
)

// Config configures a Runner.
type Config struct {
	Range      marketdata.Range
	Indicators indicator.Config
	Rules      strategy.BreakoutConfig
	Workers    int // concurrent symbol fetches, default 4
}

// SymbolResult is the per-instrument outcome of a run.
type SymbolResult struct {
	Symbol string        `json:"symbol"`
	Bars   int           `json:"bars"`
	Trades []model.Trade `json:"trades,omitempty"`
	Open   bool          `json:"open"` // a position was still open at the end of the data
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// Result is everything a run produced.
type Result struct {
	Run     model.BacktestRun `json:"run"`
	Trades  []model.Trade     `json:"trades"`
	Symbols []SymbolResult    `json:"symbols"`
}

// Runner fetches bars per symbol, replays the rules bar by bar and aggregates.
type Runner struct {
	cfg      Config
	provider marketdata.Provider
	engine   *indicator.Engine
	notifier notification.Notifier
	store    model.RunStore
	now      func() time.Time
}

// NewRunner validates the configuration. notifier and store may be nil.
func NewRunner(cfg Config, p marketdata.Provider, n notification.Notifier, s model.RunStore) (*Runner, error) {
	if err := cfg.Range.Validate(); err != nil {
		return nil, fmt.Errorf("backtest range: %w", err)
	}
	eng, err := indicator.NewEngine(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Runner{cfg: cfg, provider: p, engine: eng, notifier: n, store: s, now: time.Now}, nil
}

// Replay runs the breakout rules with position tracking over bars and returns
// the closed trades. A position still open at the end is reported, not closed.
func Replay(eng *indicator.Engine, rules strategy.BreakoutConfig, symbol string, bars []model.Bar) ([]model.Trade, bool, error) {
	rules.TrackOpenPosition = true
	b, err := strategy.NewBreakout(rules)
	if err != nil {
		return nil, false, err
	}
	series := eng.Compute(bars)

	var trades []model.Trade
	for i := 0; i < series.Len(); i++ {
		sig, err := b.Evaluate(symbol, &series, i)
		if errors.Is(err, strategy.ErrUndefinedValue) {
			continue
		}
		if err != nil {
			return trades, false, err
		}
		if sig.Action == strategy.ActionExit && sig.Trade != nil {
			trades = append(trades, *sig.Trade)
		}
	}
	_, open := b.Open(symbol)
	return trades, open, nil
}

// Run backtests every symbol. Failures are recorded per symbol and never abort
// the run; the returned error is non-nil only for context cancellation.
func (r *Runner) Run(ctx context.Context, symbols []string) (*Result, error) {
	run := model.BacktestRun{
		ID:        uuid.NewString(),
		Provider:  r.provider.Name(),
		Period:    r.cfg.Range.Period,
		Interval:  r.cfg.Range.Interval,
		Symbols:   symbols,
		StartedAt: r.now().UTC(),
	}
	r.notify(ctx, notification.Alert{
		Level:   notification.AlertInfo,
		Title:   "Backtest started",
		Message: fmt.Sprintf("Backtest starting, period: %s, interval: %s, %d symbols", run.Period, run.Interval, len(symbols)),
	})

	results := make([]SymbolResult, len(symbols))
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = SymbolResult{Symbol: sym, Err: ctx.Err()}
				return
			}
			results[i] = r.runSymbol(ctx, sym)
		}(i, sym)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ledger := NewLedger()
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			res.Error = res.Err.Error()
			run.Failed = append(run.Failed, res.Symbol)
			log.Printf("[backtest] %s: %v", res.Symbol, res.Err)
			continue
		}
		ledger.Record(res.Trades...)
	}

	run.FinishedAt = r.now().UTC()
	run.Summary = ledger.Summary()
	out := &Result{Run: run, Trades: ledger.Trades(), Symbols: results}

	if r.store != nil {
		if err := r.store.SaveRun(ctx, run, out.Trades); err != nil {
			log.Printf("[backtest] persist run %s: %v", run.ID, err)
		}
	}
	return out, nil
}

func (r *Runner) runSymbol(ctx context.Context, sym string) SymbolResult {
	res := SymbolResult{Symbol: sym}
	bars, err := r.provider.FetchBars(ctx, sym, r.cfg.Range)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bars = len(bars)
	res.Trades, res.Open, res.Err = Replay(r.engine, r.cfg.Rules, sym, bars)
	return res
}

// Finished sends the completion notification. Call it after exports succeed.
func (r *Runner) Finished(ctx context.Context, res *Result, outputs []string) {
	s := res.Run.Summary
	r.notify(ctx, notification.Alert{
		Level: notification.AlertInfo,
		Title: "Backtest finished",
		Message: fmt.Sprintf("Backtest complete. %d trades, win rate %.2f%%, total PnL %.2f, max drawdown %.2f. Results saved to %v",
			s.TotalTrades, s.WinRate, s.TotalPnL, s.MaxDrawdown, outputs),
	})
}

func (r *Runner) notify(ctx context.Context, a notification.Alert) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, a); err != nil {
		log.Printf("[backtest] notify: %v", err)
	}
}
