package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"trading-signalsv1/internal/model"
)

// Alpaca fetches US equity bars through the Alpaca market data API.
type Alpaca struct {
	client *marketdata.Client
	feed   marketdata.Feed
	now    func() time.Time
}

// NewAlpaca creates an Alpaca provider. feed is "iex" (free) or "sip".
func NewAlpaca(apiKey, apiSecret, feed string) *Alpaca {
	if feed == "" {
		feed = marketdata.IEX
	}
	return &Alpaca{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		feed: feed,
		now:  time.Now,
	}
}

func (a *Alpaca) Name() string { return "alpaca" }

// FetchBars requests raw (unadjusted) bars from r.Start(now) until now.
func (a *Alpaca) FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error) {
	tf, err := alpacaTimeFrame(r.Interval)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := a.now()
	raw, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Adjustment: marketdata.Raw,
		Feed:       a.feed,
		Start:      r.Start(end),
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, err)
	}

	bars := make([]model.Bar, len(raw))
	for i, b := range raw {
		bars[i] = model.Bar{
			Symbol: symbol,
			TS:     b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	bars = clean(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// alpacaTimeFrame converts "15m", "1h", "1d", "1wk", "1mo" to an Alpaca timeframe.
func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	n, unit, err := splitUnit(interval, intervalUnits)
	if err != nil {
		return marketdata.TimeFrame{}, fmt.Errorf("interval %q: %w", interval, err)
	}
	switch unit {
	case "m":
		return marketdata.NewTimeFrame(n, marketdata.Min), nil
	case "h":
		return marketdata.NewTimeFrame(n, marketdata.Hour), nil
	case "d":
		return marketdata.NewTimeFrame(n, marketdata.Day), nil
	case "wk":
		return marketdata.NewTimeFrame(n, marketdata.Week), nil
	default:
		return marketdata.NewTimeFrame(n, marketdata.Month), nil
	}
}
