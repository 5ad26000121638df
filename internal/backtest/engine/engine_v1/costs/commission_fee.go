package costs

type CommissionFee interface {
	// Calculate the commission fee for a fill of quantity units at price, in quote currency.
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	// BrokerPercentage charges transaction_cost times the traded value.
	BrokerPercentage        Broker = "percentage"
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerPercentage,
	BrokerInteractiveBroker,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model for broker. Unknown brokers fall back to
// the percentage model with the given rate.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewPercentageCommissionFee(rate)
	}
}
