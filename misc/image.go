package misc

import "math"

func LerpFloat64(v1 float64, v2 float64, fraction float64) float64 {
	return v1 + (v2-v1)*fraction
}

// Linspace returns n evenly spaced values over [start, stop], endpoints included.
// A single sample sits on start.
func Linspace(start float64, stop float64, n int) []float64 {
	values := make([]float64, n)
	if n == 1 {
		values[0] = start
		return values
	}
	step := (stop - start) / float64(n-1)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	return values
}

func Clamp(v float64, low float64, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
