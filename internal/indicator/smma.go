package indicator

// EWM is a recursive exponentially weighted mean without bias adjustment:
//
//	y[0] = x[0]
//	y[t] = y[t-1] + alpha*(x[t]-y[t-1])
//
// alpha = 1/period gives Wilder's smoothing; alpha = 2/(span+1) gives EMA.
func EWM(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}
