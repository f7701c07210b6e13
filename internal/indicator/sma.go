package indicator

import "gonum.org/v1/gonum/stat"

// RollingMean averages the last window values at each index. Before window
// values exist the mean runs over everything seen so far (min periods 1).
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		window = 1
	}
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		out[i] = stat.Mean(values[lo:i+1], nil)
	}
	return out
}

// SMA is the simple moving average of closes over window.
func SMA(closes []float64, window int) []float64 {
	return RollingMean(closes, window)
}

// VolumeAverage is the rolling mean of volume over window.
func VolumeAverage(volumes []float64, window int) []float64 {
	return RollingMean(volumes, window)
}
