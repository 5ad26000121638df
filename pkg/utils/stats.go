package utils

import (
	"math"
	"slices"
)

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// SampleStd is the standard deviation with one degree of freedom removed.
// It is NaN for fewer than two values.
func SampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}

	mean := Mean(values)

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}

	return math.Sqrt(sum / float64(n-1))
}

// PctChange returns p[i]/p[i-1]-1 with the first element NaN.
func PctChange(prices []float64) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}

	out[0] = math.NaN()
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]/prices[i-1] - 1
	}

	return out
}

// Percentile returns the q-th percentile (0-100), interpolating linearly between the
// closest ranks. values is not modified.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	rank := q / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	return sorted[lower] + (rank-float64(lower))*(sorted[upper]-sorted[lower])
}
