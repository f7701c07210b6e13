package report

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
	"trading-signalsv1/internal/strategy"
)

// NotEnoughData is the recommendation shown when a stock has too few bars.
const NotEnoughData = "Not enough data for analysis."

// Options configures an Analyzer.
type Options struct {
	Range      marketdata.Range // classification window, default 1mo@1d
	ChartRange marketdata.Range // chart window, default 3mo@1d
	Indicators indicator.Config // RSI smoothing is forced to exponential
	Workers    int
	NoCharts   bool
}

// StockResult is one row of a report.
type StockResult struct {
	Stock          string            `json:"stock"`
	Ticker         string            `json:"ticker"`
	Direction      model.Direction   `json:"direction,omitempty"`
	Recommendation string            `json:"recommendation"`
	LatestPrice    float64           `json:"latest_price"`
	Bars           int               `json:"bars"`
	Chart          *indicator.Series `json:"-"`
	Err            error             `json:"-"`
	Error          string            `json:"error,omitempty"`
}

// Report is the outcome of one analysis request.
type Report struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Stocks    []StockResult `json:"stocks"`
}

// Rows returns the Stock / Trade Recommendation table. Stocks that failed
// to load are left out.
func (r *Report) Rows() [][]any {
	var rows [][]any
	for _, s := range r.Stocks {
		if s.Err != nil {
			continue
		}
		rows = append(rows, []any{s.Stock, s.Recommendation})
	}
	return rows
}

// Analyzer classifies stocks with the SMA/EMA crossover rules.
type Analyzer struct {
	provider  marketdata.Provider
	parser    *TickerParser
	engine    *indicator.Engine
	crossover *strategy.Crossover
	opts      Options
	now       func() time.Time
}

func NewAnalyzer(p marketdata.Provider, parser *TickerParser, opts Options) (*Analyzer, error) {
	if p == nil || parser == nil {
		return nil, errors.New("report: provider and ticker parser are required")
	}
	if opts.Range == (marketdata.Range{}) {
		opts.Range = marketdata.MustRange("1mo", "1d")
	}
	if opts.ChartRange == (marketdata.Range{}) {
		opts.ChartRange = marketdata.MustRange("3mo", "1d")
	}
	if opts.Indicators == (indicator.Config{}) {
		opts.Indicators = indicator.DefaultConfig()
	}
	opts.Indicators.RSISmoothing = indicator.SmoothingExponential
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	eng, err := indicator.NewEngine(opts.Indicators)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		provider:  p,
		parser:    parser,
		engine:    eng,
		crossover: strategy.NewCrossover(),
		opts:      opts,
		now:       time.Now,
	}, nil
}

// Parser returns the ticker parser used for uploads.
func (a *Analyzer) Parser() *TickerParser { return a.parser }

// Analyze classifies every stock. A failing stock is recorded in its result
// and never stops the others. Results keep the order of stocks.
func (a *Analyzer) Analyze(ctx context.Context, stocks []string) *Report {
	rep := &Report{ID: uuid.NewString(), CreatedAt: a.now().UTC(), Stocks: make([]StockResult, len(stocks))}

	sem := make(chan struct{}, a.opts.Workers)
	var wg sync.WaitGroup
	for i, stock := range stocks {
		wg.Add(1)
		go func(i int, stock string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			rep.Stocks[i] = a.analyzeStock(ctx, stock)
		}(i, stock)
	}
	wg.Wait()
	return rep
}

func (a *Analyzer) analyzeStock(ctx context.Context, stock string) StockResult {
	res := StockResult{Stock: stock, Ticker: a.parser.Ticker(stock)}
	bars, err := a.provider.FetchBars(ctx, res.Ticker, a.opts.Range)
	if err == nil && len(bars) == 0 {
		err = fmt.Errorf("%s: %w", res.Ticker, marketdata.ErrNoData)
	}
	if err != nil {
		res.Err, res.Error = err, err.Error()
		log.Printf("[report] %s: %v", stock, err)
		return res
	}
	res.Bars = len(bars)
	res.LatestPrice = bars[len(bars)-1].Close

	series := a.engine.Compute(bars)
	sig, err := a.crossover.Evaluate(res.Ticker, &series, -1)
	switch {
	case errors.Is(err, strategy.ErrInsufficientData):
		res.Recommendation = NotEnoughData
	case err != nil:
		res.Err, res.Error = err, err.Error()
		return res
	default:
		res.Direction = sig.Direction
		res.Recommendation = Recommendation(sig.Direction)
	}

	if !a.opts.NoCharts {
		chartBars, err := a.provider.FetchBars(ctx, res.Ticker, a.opts.ChartRange)
		if err != nil || len(chartBars) == 0 {
			log.Printf("[report] %s chart: no data (%v)", stock, err)
			return res
		}
		cs := a.engine.Compute(chartBars)
		res.Chart = &cs
	}
	return res
}

// Recommendation renders a crossover direction for the report table.
func Recommendation(d model.Direction) string {
	switch d {
	case model.DirectionCE:
		return "CE"
	case model.DirectionPE:
		return "PE"
	}
	return "Neutral"
}
