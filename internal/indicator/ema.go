package indicator

import (
	"github.com/thrasher-corp/gct-ta/indicators"
)

// EMA returns the exponential moving average of values, seeded with the simple average of
// the first period values. The first period-1 entries are NaN.
func EMA(values []float64, period int) ([]float64, error) {
	if err := validate("ema", values, period, 1, period); err != nil {
		return nil, err
	}

	return warmUp(indicators.EMA(values, period), period-1), nil
}
