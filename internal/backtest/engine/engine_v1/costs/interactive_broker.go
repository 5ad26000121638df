package costs

// InteractiveBrokerCommissionFee charges a flat amount per unit with a minimum ticket fee.
type InteractiveBrokerCommissionFee struct {
	PerUnit float64
	Minimum float64
}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{
		PerUnit: 0.005,
		Minimum: 1.0,
	}
}

func (c *InteractiveBrokerCommissionFee) Calculate(quantity float64, _ float64) float64 {
	fee := c.PerUnit * quantity
	if fee < c.Minimum {
		return c.Minimum
	}

	return fee
}
