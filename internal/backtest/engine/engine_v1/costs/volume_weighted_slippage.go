package costs

import "math"

// VolumeWeightedSlippage scales with the square root of the trade's share of market volume:
// cost = size * price * base * sqrt(size / volume).
type VolumeWeightedSlippage struct {
	BaseRate float64
}

func NewVolumeWeightedSlippage(baseRate float64) *VolumeWeightedSlippage {
	return &VolumeWeightedSlippage{BaseRate: baseRate}
}

func (s *VolumeWeightedSlippage) Calculate(sizes, volumes, prices []float64) []float64 {
	out := make([]float64, len(sizes))
	for i := range sizes {
		out[i] = s.CalculateSingle(sizes[i], at(volumes, i), at(prices, i))
	}

	return out
}

// CalculateSingle returns 0 when volume is zero, negative or NaN, or when size is NaN.
func (s *VolumeWeightedSlippage) CalculateSingle(size, volume, price float64) float64 {
	if math.IsNaN(volume) || volume <= 0 || math.IsNaN(size) || size < 0 {
		return 0
	}

	impact := math.Sqrt(size / volume)

	return nonNegative(size * price * s.BaseRate * impact)
}
