package costs

// ZeroCommissionFee is used for commission-free venues and for tests that only look at
// price effects.
type ZeroCommissionFee struct{}

func NewZeroCommissionFee() CommissionFee {
	return ZeroCommissionFee{}
}

func (ZeroCommissionFee) Calculate(float64, float64) float64 {
	return 0
}
