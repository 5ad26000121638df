package indicator

import (
	"github.com/thrasher-corp/gct-ta/indicators"
)

// SMA returns the simple moving average of values. The first period-1 entries are NaN.
func SMA(values []float64, period int) ([]float64, error) {
	if err := validate("sma", values, period, 1, period); err != nil {
		return nil, err
	}

	return warmUp(indicators.SMA(values, period), period-1), nil
}
