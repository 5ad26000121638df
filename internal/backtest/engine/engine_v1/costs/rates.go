package costs

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// PerBarRate converts an annualized rate to a per-bar rate.
func PerBarRate(annual float64, barsPerYear int) float64 {
	if barsPerYear <= 0 {
		return 0
	}

	return annual / float64(barsPerYear)
}

// ResolvePerBarRates returns n per-bar rates. When series is empty every bar uses the scalar
// annual rate; otherwise series holds one annualized rate per bar and must have length n.
func ResolvePerBarRates(annual float64, series []float64, n int, barsPerYear int) ([]float64, error) {
	if barsPerYear <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "bars_per_year must be positive, got %d", barsPerYear)
	}

	out := make([]float64, n)

	if len(series) == 0 {
		rate := PerBarRate(annual, barsPerYear)
		for i := range out {
			out[i] = rate
		}

		return out, nil
	}

	if len(series) != n {
		return nil, errors.Newf(errors.ErrCodeInvalidRateSeries,
			"rate series has %d values but the data has %d bars", len(series), n)
	}

	for i, rate := range series {
		out[i] = PerBarRate(rate, barsPerYear)
	}

	return out, nil
}

// AlignRateSeries picks the rate for each timestamp from a time-indexed series.
// Every timestamp must be present. An empty series yields nil.
func AlignRateSeries(series types.TimeSeries, times []time.Time) ([]float64, error) {
	if len(series) == 0 {
		return nil, nil
	}

	byTime := make(map[int64]float64, len(series))
	for _, point := range series {
		byTime[point.Time.UnixNano()] = point.Value
	}

	out := make([]float64, len(times))

	for i, t := range times {
		rate, ok := byTime[t.UnixNano()]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidRateSeries,
				"rate series has no value at %s", t.Format(time.RFC3339))
		}

		out[i] = rate
	}

	return out, nil
}

// Turnover returns |pos[i] - pos[i-1]| with the first element 0.
func Turnover(positions []float64) []float64 {
	out := make([]float64, len(positions))
	for i := 1; i < len(positions); i++ {
		out[i] = math.Abs(positions[i] - positions[i-1])
	}

	return out
}

// FundingCost is the carry charged on a notional for one bar. The rate may be negative,
// in which case the holder is paid.
func FundingCost(notional, rate float64) float64 {
	return notional * rate
}

// BorrowCost is the fee for borrowing a shorted notional for one bar. Longs pay nothing.
func BorrowCost(notional, rate float64, isShort bool) float64 {
	if !isShort {
		return 0
	}

	return math.Abs(notional) * rate
}
