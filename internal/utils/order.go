package utils

import "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"

// CalculateMaxQuantity returns the largest quantity whose value plus commission fits in
// balance at price. Slippage is not included, so callers that need a cushion should pass
// a reduced balance.
func CalculateMaxQuantity(balance float64, price float64, commissionFee costs.CommissionFee) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}

	quantity := balance / price

	// converges in a handful of steps for proportional and flat fees
	for range 20 {
		total := quantity*price + commissionFee.Calculate(quantity, price)
		if total <= balance {
			return quantity
		}

		quantity *= balance / total
	}

	total := quantity*price + commissionFee.Calculate(quantity, price)
	if total > balance {
		return 0
	}

	return quantity
}

// CalculateOrderQuantityByPercentage sizes an order to spend percentage of balance.
func CalculateOrderQuantityByPercentage(balance float64, price float64, commissionFee costs.CommissionFee, percentage float64) float64 {
	return CalculateMaxQuantity(balance*percentage, price, commissionFee)
}
