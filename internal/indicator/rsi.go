package indicator

// RSI computes the relative strength index of closes.
//
// The first bar has no predecessor and contributes a zero move, which leaves
// the up/down ratio of later bars unchanged. When the mean down move is zero
// the ratio is unbounded and RSI is 100, so the series is defined from the
// first bar, including flat input.
func RSI(closes []float64, period int, smoothing Smoothing) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if period <= 0 {
		period = 1
	}

	up := make([]float64, n)
	down := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			up[i] = d
		} else {
			down[i] = -d
		}
	}

	var meanUp, meanDown []float64
	if smoothing == SmoothingExponential {
		alpha := 1.0 / float64(period)
		meanUp, meanDown = EWM(up, alpha), EWM(down, alpha)
	} else {
		meanUp, meanDown = RollingMean(up, period), RollingMean(down, period)
	}

	for i := range out {
		out[i] = rsiFromMeans(meanUp[i], meanDown[i])
	}
	return out
}

func rsiFromMeans(meanUp, meanDown float64) float64 {
	if meanDown == 0 {
		return 100
	}
	rs := meanUp / meanDown
	return 100 - 100/(1+rs)
}
