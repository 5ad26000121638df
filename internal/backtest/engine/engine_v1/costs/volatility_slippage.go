package costs

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/pkg/utils"
)

// VolatilitySlippage charges size * price * (rolling std of returns * multiplier).
// The rolling window holds Period percentage returns and yields 0 until it is full.
type VolatilitySlippage struct {
	Period     int
	Multiplier float64
}

func NewVolatilitySlippage(period int, multiplier float64) *VolatilitySlippage {
	return &VolatilitySlippage{
		Period:     period,
		Multiplier: multiplier,
	}
}

func (s *VolatilitySlippage) Calculate(sizes, volumes, prices []float64) []float64 {
	out := make([]float64, len(sizes))
	if len(prices) < s.Period {
		return out
	}

	vol := RollingReturnStd(prices, s.Period)
	for i := range sizes {
		out[i] = nonNegative(sizes[i] * at(prices, i) * at(vol, i) * s.Multiplier)
	}

	return out
}

// CalculateSingle has no price history to measure volatility from and returns 0.
// Callers holding recent prices use CalculateWindow instead.
func (s *VolatilitySlippage) CalculateSingle(_, _, _ float64) float64 {
	return 0
}

// Window is the number of trailing closes CalculateWindow needs.
func (s *VolatilitySlippage) Window() int {
	return s.Period + 1
}

// CalculateWindow prices one order of size units at price, measuring volatility over
// closes that end at the current bar. With price equal to the last close it matches the
// last element of Calculate over the same closes.
func (s *VolatilitySlippage) CalculateWindow(size, _ float64, price float64, closes []float64) float64 {
	if len(closes) < s.Window() {
		return 0
	}

	recent := closes[len(closes)-s.Window():]
	vol := RollingReturnStd(recent, s.Period)

	return nonNegative(size * price * vol[len(vol)-1] * s.Multiplier)
}

// RollingReturnStd returns the sample standard deviation of percentage returns over a
// trailing window of period returns. Entries without a full window are 0. The first price
// has no return, so the first non-zero entry is at index period.
func RollingReturnStd(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period < 2 || len(prices) <= period {
		return out
	}

	returns := utils.PctChange(prices)
	for i := period; i < len(prices); i++ {
		window := returns[i-period+1 : i+1]
		std := utils.SampleStd(window)

		if math.IsNaN(std) || math.IsInf(std, 0) {
			continue
		}

		out[i] = std
	}

	return out
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}

	return math.NaN()
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}

	return v
}
