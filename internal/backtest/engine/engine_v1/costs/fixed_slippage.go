package costs

// FixedSlippage charges a constant fraction of the trade value.
type FixedSlippage struct {
	Pct float64
}

func NewFixedSlippage(pct float64) *FixedSlippage {
	return &FixedSlippage{Pct: pct}
}

func (s *FixedSlippage) Calculate(sizes, volumes, prices []float64) []float64 {
	out := make([]float64, len(sizes))
	for i := range sizes {
		out[i] = s.CalculateSingle(sizes[i], at(volumes, i), at(prices, i))
	}

	return out
}

func (s *FixedSlippage) CalculateSingle(size, _ float64, price float64) float64 {
	return nonNegative(size * price * s.Pct)
}
