package indicator

// EMA returns the exponential moving average with alpha = 2/(span+1),
// seeded with the first close.
func EMA(closes []float64, span int) []float64 {
	if span <= 0 {
		span = 1
	}
	return EWM(closes, 2.0/float64(span+1))
}
