// Package marketdata fetches OHLCV bars from remote and local sources.
//
// Every source implements Provider. Bars come back oldest first, with rows
// that have any missing field dropped and duplicate timestamps removed.
package marketdata

import (
	"context"
	"errors"
	"math"
	"sort"

	"trading-signalsv1/internal/model"
)

// ErrNoData means the source answered but had no usable bars for the symbol.
var ErrNoData = errors.New("no data")

// Provider fetches bars for one symbol over a Range.
type Provider interface {
	Name() string
	FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error)
}

// clean drops incomplete rows, sorts by time and removes duplicate timestamps
// (the later row wins).
func clean(bars []model.Bar) []model.Bar {
	out := bars[:0]
	for _, b := range bars {
		if b.TS.IsZero() || bad(b.Open) || bad(b.High) || bad(b.Low) || bad(b.Close) || bad(b.Volume) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })

	dedup := out[:0]
	for i, b := range out {
		if i > 0 && b.TS.Equal(dedup[len(dedup)-1].TS) {
			dedup[len(dedup)-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

func bad(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
