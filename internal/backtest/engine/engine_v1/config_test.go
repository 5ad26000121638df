package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal(DefaultInitialCapital, config.InitialCapital)
	suite.Equal(DefaultTransactionCost, config.TransactionCost)
	suite.Equal(DefaultBarsPerYear, config.BarsPerYear)
	suite.Equal(costs.BrokerPercentage, config.Broker)
	suite.Equal(ZeroSignalPolicyHold, config.ZeroSignal)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestTestConfig() {
	config := TestConfig(5000)

	suite.Equal(5000.0, config.InitialCapital)
	suite.Equal(0.0, config.TransactionCost)
	suite.Equal(costs.BrokerZero, config.Broker)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestParseConfig() {
	content := `
initial_capital: 25000
transaction_cost: 0.002
broker: interactive_broker
slippage:
  model: fixed
  pct: 0.001
funding_rate: 0.05
borrow_rate: 0.02
bars_per_year: 252
zero_signal_policy: flat
symbol: BTCUSDT
start_time: 2024-01-01T00:00:00Z
end_time: 2024-06-01T00:00:00Z
`

	config, err := ParseConfig([]byte(content))
	suite.Require().NoError(err)

	suite.Equal(25000.0, config.InitialCapital)
	suite.Equal(0.002, config.TransactionCost)
	suite.Equal(costs.BrokerInteractiveBroker, config.Broker)
	suite.Equal(costs.SlippageModelFixed, config.Slippage.Model)
	suite.Equal(0.001, config.Slippage.Pct)
	suite.Equal(0.05, config.FundingRate)
	suite.Equal(0.02, config.BorrowRate)
	suite.Equal(252, config.BarsPerYear)
	suite.Equal(ZeroSignalPolicyFlat, config.ZeroSignal)
	suite.Equal("BTCUSDT", config.Symbol)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap())
	suite.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), config.EndTime.Unwrap())
}

func (suite *ConfigTestSuite) TestParseConfigKeepsDefaults() {
	config, err := ParseConfig([]byte("symbol: ETHUSDT\n"))
	suite.Require().NoError(err)

	suite.Equal(DefaultInitialCapital, config.InitialCapital)
	suite.Equal(DefaultTransactionCost, config.TransactionCost)
	suite.Equal(DefaultBarsPerYear, config.BarsPerYear)
	suite.Equal(ZeroSignalPolicyHold, config.ZeroSignal)
	suite.True(config.StartTime.IsNone())
}

func (suite *ConfigTestSuite) TestBarsPerYearFromInterval() {
	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{"hourly interval", "interval: 1h\n", 8760},
		{"daily interval", "interval: 1d\n", 365},
		{"explicit value wins", "interval: 1h\nbars_per_year: 252\n", 252},
		{"no interval", "symbol: BTCUSDT\n", DefaultBarsPerYear},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config, err := ParseConfig([]byte(tc.content))
			suite.Require().NoError(err)
			suite.Equal(tc.expected, config.BarsPerYear)
		})
	}
}

func (suite *ConfigTestSuite) TestParseConfigErrors() {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"malformed yaml", "initial_capital: [", errors.ErrCodeInvalidConfiguration},
		{"zero capital", "initial_capital: 0\n", errors.ErrCodeInvalidConfiguration},
		{"negative transaction cost", "transaction_cost: -0.1\n", errors.ErrCodeInvalidConfiguration},
		{"negative borrow rate", "borrow_rate: -0.1\n", errors.ErrCodeInvalidConfiguration},
		{"unknown zero policy", "zero_signal_policy: close\n", errors.ErrCodeInvalidConfiguration},
		{"unknown broker", "broker: robinhood\n", errors.ErrCodeInvalidConfiguration},
		{"unknown slippage model", "slippage:\n  model: quadratic\n", errors.ErrCodeInvalidSlippageModel},
		{
			"start after end",
			"start_time: 2024-02-01T00:00:00Z\nend_time: 2024-01-01T00:00:00Z\n",
			errors.ErrCodeInvalidConfiguration,
		},
		{"incompatible version", "version: v99.0.0\n", errors.ErrCodeInvalidVersion},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := ParseConfig([]byte(tc.content))
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code), err.Error())
		})
	}
}

func (suite *ConfigTestSuite) TestReadOptions() {
	config := EmptyConfig()
	suite.True(config.ReadOptions().Symbol.IsNone())
	suite.True(config.ReadOptions().Interval.IsNone())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	config.Symbol = "BTCUSDT"
	config.Interval = datasource.Interval4h
	config.StartTime = optional.Some(start)

	opts := config.ReadOptions()
	suite.Equal("BTCUSDT", opts.Symbol.Unwrap())
	suite.Equal(datasource.Interval4h, opts.Interval.Unwrap())
	suite.Equal(start, opts.Start.Unwrap())
	suite.True(opts.End.IsNone())
}

func (suite *ConfigTestSuite) TestPerBarRates() {
	table := mocks.TableFromCloses("TEST", 100, 101, 102)

	config := TestConfig(1000)
	config.BarsPerYear = 100
	config.FundingRate = 0.5
	config.BorrowRates = types.NewTimeSeries(table.Times(), []float64{1, 2, 3})

	funding, borrow, err := config.perBarRates(table)
	suite.Require().NoError(err)
	suite.InDeltaSlice([]float64{0.005, 0.005, 0.005}, funding, 1e-12)
	suite.InDeltaSlice([]float64{0.01, 0.02, 0.03}, borrow, 1e-12)

	config.BorrowRates = config.BorrowRates[:2]
	_, _, err = config.perBarRates(table)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidRateSeries))
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := EmptyConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &schema))
	suite.Equal("backtest-engine-v1-config", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)

	for _, key := range []string{
		"initial_capital", "transaction_cost", "broker", "slippage", "funding_rate",
		"borrow_rate", "bars_per_year", "zero_signal_policy", "start_time", "end_time",
	} {
		suite.Contains(properties, key)
	}

	startTime, ok := properties["start_time"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal("date-time", startTime["format"])

	policy, ok := properties["zero_signal_policy"].(map[string]any)
	suite.Require().True(ok)
	suite.ElementsMatch([]any{"hold", "flat"}, policy["enum"])
}
