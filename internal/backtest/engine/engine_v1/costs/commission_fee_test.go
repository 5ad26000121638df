package costs

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func (suite *CommissionFeeTestSuite) TestBrokerFees() {
	tests := []struct {
		name     string
		broker   Broker
		quantity float64
		price    float64
		expected float64
	}{
		{"zero commission on a large fill", BrokerZero, 10_000, 250, 0},
		{"ib minimum ticket", BrokerInteractiveBroker, 10, 250, 1},
		{"ib minimum with nothing filled", BrokerInteractiveBroker, 0, 250, 1},
		{"ib per unit above the minimum", BrokerInteractiveBroker, 1_000, 250, 5},
		{"ib ignores price", BrokerInteractiveBroker, 1_000, 1, 5},
		{"percentage of traded value", BrokerPercentage, 10, 100, 1},
		{"percentage of a sell", BrokerPercentage, -10, 100, 1},
		{"unknown broker charges percentage", Broker("paper"), 1_000, 100, 100},
		{"empty broker charges percentage", Broker(""), 2, 100, 0.2},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			fee := GetCommissionFeeHandler(tc.broker, 0.001)
			suite.Require().NotNil(fee)
			suite.InDelta(tc.expected, fee.Calculate(tc.quantity, tc.price), 1e-9)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestPercentageScalesWithValue() {
	fee := NewPercentageCommissionFee(0.0025)

	small := fee.Calculate(1, 40)
	large := fee.Calculate(10, 40)

	suite.InDelta(0.1, small, 1e-12)
	suite.InDelta(10*small, large, 1e-12)
}

func (suite *CommissionFeeTestSuite) TestEveryBrokerHasAHandler() {
	suite.ElementsMatch([]any{BrokerPercentage, BrokerInteractiveBroker, BrokerZero}, AllBrokers)

	for _, broker := range AllBrokers {
		suite.NotNil(GetCommissionFeeHandler(broker.(Broker), 0.01))
	}
}
