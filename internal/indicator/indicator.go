// Package indicator computes technical indicators over close series for the reference
// strategies. Every function returns one value per input; bars before the indicator has
// enough history are NaN, so a signal derived from them is "no opinion".
package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Func computes an indicator with a single look-back period.
type Func func(values []float64, period int) ([]float64, error)

// validate checks period and that values hold at least minLength entries.
func validate(name string, values []float64, period, minPeriod, minLength int) error {
	if period < minPeriod {
		return errors.Newf(errors.ErrCodeInvalidParameter, "%s period must be at least %d, got %d", name, minPeriod, period)
	}

	if len(values) < minLength {
		return errors.NewInsufficientDataErrorf(minLength, len(values), 0,
			"%s with period %d needs %d values, got %d", name, period, minLength, len(values))
	}

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidParameter, "%s input has a non-finite value at %d", name, i)
		}
	}

	return nil
}

// warmUp overwrites the first n outputs with NaN.
func warmUp(out []float64, n int) []float64 {
	for i := 0; i < n && i < len(out); i++ {
		out[i] = math.NaN()
	}

	return out
}

// Last returns the final value of series and whether it is defined.
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}

	v := series[len(series)-1]
	if math.IsNaN(v) {
		return 0, false
	}

	return v, true
}
