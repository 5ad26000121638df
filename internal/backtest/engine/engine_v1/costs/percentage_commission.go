package costs

import "math"

// PercentageCommissionFee charges a fraction of the traded value.
// The vectorized engine applies the same rate to turnover, so both engines agree.
type PercentageCommissionFee struct {
	Rate float64
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{Rate: rate}
}

func (c *PercentageCommissionFee) Calculate(quantity float64, price float64) float64 {
	return math.Abs(quantity*price) * c.Rate
}
