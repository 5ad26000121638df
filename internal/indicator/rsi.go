package indicator

import (
	"github.com/thrasher-corp/gct-ta/indicators"
)

// RSI returns Wilder's relative strength index in [0, 100]. It needs period+1 values
// because it works on changes; the first period entries are NaN.
func RSI(values []float64, period int) ([]float64, error) {
	if err := validate("rsi", values, period, 2, period+1); err != nil {
		return nil, err
	}

	return warmUp(indicators.RSI(values, period), period), nil
}
