package indicator

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"trading-signalsv1/internal/model"
)

// VWAP returns the cumulative volume-weighted average of the typical price,
// anchored at the first bar. A prefix with zero cumulative volume is NaN.
func VWAP(bars []model.Bar) []float64 {
	n := len(bars)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	tp := make([]float64, n)
	for i := range bars {
		tp[i] = bars[i].TypicalPrice()
	}
	vol := model.Volumes(bars)

	pv := make([]float64, n)
	floats.MulTo(pv, tp, vol)
	cumPV := floats.CumSum(make([]float64, n), pv)
	cumVol := floats.CumSum(make([]float64, n), vol)

	for i := range out {
		if cumVol[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cumPV[i] / cumVol[i]
	}
	return out
}
