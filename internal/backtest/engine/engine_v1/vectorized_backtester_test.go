package engine

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type VectorizedBacktesterTestSuite struct {
	suite.Suite
}

func TestVectorizedBacktesterSuite(t *testing.T) {
	suite.Run(t, new(VectorizedBacktesterTestSuite))
}

func (suite *VectorizedBacktesterTestSuite) run(config BacktestEngineV1Config, table types.BarTable, signals []float64) *types.BacktestResult {
	backtester, err := NewVectorizedBacktester(config, nil)
	suite.Require().NoError(err)

	result, err := backtester.Run(context.Background(), table, signals, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	return result
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}

	return out
}

func (suite *VectorizedBacktesterTestSuite) TestAlwaysLongOnLinearSeries() {
	table := mocks.TableFromCloses("TEST", mocks.LinearCloses(100, 110, 11)...)

	result := suite.run(TestConfig(1000), table, ones(11))

	suite.Len(result.EquityCurve, 11)
	suite.InDelta(1100.0, result.FinalEquity(), 1e-6)
	suite.Equal(0.0, result.Positions.Values()[0])
	suite.Equal(1.0, result.Positions.Last())
	suite.Equal(types.ResultTypeVectorized, result.Metadata[types.MetadataKeyType])
	suite.InDelta(0.1, result.Metrics[metrics.TotalReturn], 1e-9)
	suite.Equal(0.0, result.Metrics[metrics.MaxDrawdown])
}

func (suite *VectorizedBacktesterTestSuite) TestAlignPositions() {
	signals := []float64{1, 0, 0, -1, math.NaN(), 0, 1}

	tests := []struct {
		name     string
		policy   ZeroSignalPolicy
		expected []float64
	}{
		{"hold keeps the last state", ZeroSignalPolicyHold, []float64{0, 1, 1, 1, -1, -1, -1}},
		{"flat closes on zero", ZeroSignalPolicyFlat, []float64{0, 1, 0, 0, -1, 0, 0}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, AlignPositions(signals, tc.policy))
		})
	}

	suite.Empty(AlignPositions(nil, ZeroSignalPolicyHold))
}

func (suite *VectorizedBacktesterTestSuite) TestZeroSignalPolicyChangesResult() {
	table := mocks.TableFromCloses("TEST", 100, 110, 121, 133.1)
	signals := types.Signals(types.SignalStateLong, types.SignalStateNone, types.SignalStateNone, types.SignalStateNone)

	hold := TestConfig(1000)
	flat := TestConfig(1000)
	flat.ZeroSignal = ZeroSignalPolicyFlat

	suite.InDelta(1331.0, suite.run(hold, table, signals).FinalEquity(), 1e-6)
	suite.InDelta(1100.0, suite.run(flat, table, signals).FinalEquity(), 1e-6)
}

func (suite *VectorizedBacktesterTestSuite) TestTransactionCost() {
	table := mocks.TableFromCloses("TEST", 100, 100, 100)

	config := TestConfig(1000)
	config.TransactionCost = 0.001

	result := suite.run(config, table, ones(3))

	suite.InDeltaSlice([]float64{0, 0.001, 0}, result.Costs[types.CostTransaction].Values(), 1e-12)
	suite.InDelta(999.0, result.FinalEquity(), 1e-9)
	suite.InDelta(0.001, result.Metrics[metrics.TotalCosts], 1e-12)
}

func (suite *VectorizedBacktesterTestSuite) TestFixedSlippageAsFractionOfCapital() {
	table := mocks.TableFromCloses("TEST", 100, 100, 100)

	config := TestConfig(1000)
	config.Slippage = costs.SlippageConfig{Model: costs.SlippageModelFixed, Pct: 0.01}

	result := suite.run(config, table, ones(3))

	// one unit of turnover buys 10 units at 100; 1% of that is 10 on 1000 capital
	suite.InDeltaSlice([]float64{0, 0.01, 0}, result.Costs[types.CostSlippage].Values(), 1e-12)
	suite.InDelta(990.0, result.FinalEquity(), 1e-9)
}

func (suite *VectorizedBacktesterTestSuite) TestFundingAndBorrowOnShort() {
	table := mocks.TableFromCloses("TEST", 100, 100, 100)

	config := TestConfig(1000)
	config.BarsPerYear = 365
	config.FundingRate = 0.365
	config.BorrowRate = 0.365

	result := suite.run(config, table, []float64{-1, -1, -1})

	suite.InDeltaSlice([]float64{0, 0.001, 0.001}, result.Costs[types.CostFunding].Values(), 1e-12)
	suite.InDeltaSlice([]float64{0, 0.001, 0.001}, result.Costs[types.CostBorrow].Values(), 1e-12)
	suite.InDeltaSlice([]float64{0, -0.002, -0.002}, result.Returns.Values(), 1e-12)
	suite.InDelta(1000*0.998*0.998, result.FinalEquity(), 1e-9)
}

func (suite *VectorizedBacktesterTestSuite) TestWipeOutKeepsEquityAtZero() {
	table := mocks.TableFromCloses("TEST", 100, 100, 0, 50)

	result := suite.run(TestConfig(1000), table, ones(4))

	suite.Equal([]float64{1000, 1000, 0, 0}, result.EquityCurve.Values())
	suite.Equal(0.0, result.Metrics[metrics.CAGR])
	suite.InDelta(1.0, result.Metrics[metrics.MaxDrawdown], 1e-12)
}

func (suite *VectorizedBacktesterTestSuite) TestTradeLog() {
	table := mocks.TableFromCloses("TEST", 100, 110, 121, 110, 100)

	// positions 0, 1, 1, -1, -1: long from close 100 to 121, then short from 121 to the end
	result := suite.run(TestConfig(1000), table, []float64{1, 1, -1, -1, 0})

	suite.Require().Len(result.Trades, 2)

	long := result.Trades[0]
	suite.Equal(types.PurchaseTypeBuy, long.Side)
	suite.Equal(1.0, long.Quantity)
	suite.Equal(100.0, long.EntryPrice)
	suite.Equal(121.0, long.ExitPrice)
	suite.Equal(table.Bars[0].Time, long.EntryTime)
	suite.Equal(table.Bars[2].Time, long.ExitTime)
	suite.Equal(2, long.HoldingBars.Unwrap())
	suite.InDelta(0.21, long.PnL.Unwrap(), 1e-9)

	short := result.Trades[1]
	suite.Equal(types.PurchaseTypeSell, short.Side)
	suite.Equal(121.0, short.EntryPrice)
	suite.Equal(100.0, short.ExitPrice)
	suite.Equal(table.Bars[2].Time, short.EntryTime)
	suite.Equal(table.Bars[4].Time, short.ExitTime)
	suite.Equal(2, short.HoldingBars.Unwrap())
	suite.InDelta(144.0/121.0-1, short.PnL.Unwrap(), 1e-9)

	suite.Equal(2.0, result.Metrics[metrics.NumTrades])
	suite.Equal(1.0, result.Metrics[metrics.WinRate])
	suite.InDelta(2.0, result.Metrics[metrics.AvgTradeDuration], 1e-12)
}

func (suite *VectorizedBacktesterTestSuite) TestSingleTradeMatchesEquity() {
	table := mocks.TableFromCloses("TEST", mocks.LinearCloses(100, 110, 11)...)

	result := suite.run(TestConfig(1000), table, ones(11))

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]
	suite.Equal(100.0, trade.EntryPrice)
	suite.Equal(110.0, trade.ExitPrice)
	suite.Equal(10, trade.HoldingBars.Unwrap())
	suite.InDelta(result.Metrics[metrics.TotalReturn], trade.PnL.Unwrap(), 1e-9)
}

func (suite *VectorizedBacktesterTestSuite) TestBackToBackTradesCompoundToEquity() {
	closes := []float64{100, 104, 99, 103, 108, 101, 97, 102, 106, 100}
	table := mocks.TableFromCloses("TEST", closes...)

	config := TestConfig(1000)
	config.TransactionCost = 0.002
	config.Slippage = costs.SlippageConfig{Model: costs.SlippageModelFixed, Pct: 0.001}

	tests := []struct {
		name    string
		signals []float64
	}{
		{"always long", ones(len(closes))},
		{"flip every two bars", []float64{1, 1, -1, -1, 1, 1, -1, -1, 1, 1}},
		{"flip every bar", []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := suite.run(config, table, tc.signals)
			suite.Require().NotEmpty(result.Trades)

			growth := 1.0
			for _, trade := range result.Trades {
				growth *= 1 + trade.PnL.Unwrap()
			}

			suite.InDelta(result.FinalEquity()/config.InitialCapital, growth, 1e-9)
		})
	}
}

func (suite *VectorizedBacktesterTestSuite) TestNoTradesWithoutSignals() {
	table := mocks.TableFromCloses("TEST", 100, 90, 120)

	result := suite.run(TestConfig(1000), table, []float64{0, 0, 0})

	suite.Empty(result.Trades)
	suite.Equal([]float64{1000, 1000, 1000}, result.EquityCurve.Values())
}

func (suite *VectorizedBacktesterTestSuite) TestRunErrors() {
	full := mocks.TableFromCloses("TEST", 100, 101, 102)

	noClose, err := types.NewBarTable("TEST", []types.Column{types.ColumnVolume}, full.Bars)
	suite.Require().NoError(err)

	config := TestConfig(1000)
	config.BorrowRates = types.NewTimeSeries(full.Times()[:2], []float64{0.1, 0.1})

	tests := []struct {
		name    string
		config  BacktestEngineV1Config
		table   types.BarTable
		signals []float64
		code    errors.ErrorCode
	}{
		{"signal too short", TestConfig(1000), full, []float64{1, 1}, errors.ErrCodeSignalLength},
		{"signal too long", TestConfig(1000), full, ones(4), errors.ErrCodeSignalLength},
		{"missing close column", TestConfig(1000), noClose, ones(3), errors.ErrCodeMissingColumn},
		{"misaligned rate series", config, full, ones(3), errors.ErrCodeInvalidRateSeries},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			backtester, err := NewVectorizedBacktester(tc.config, nil)
			suite.Require().NoError(err)

			result, err := backtester.Run(context.Background(), tc.table, tc.signals, engine.LifecycleCallbacks{})
			suite.Nil(result)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code), err.Error())
		})
	}
}

func (suite *VectorizedBacktesterTestSuite) TestRunProvider() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	table := mocks.TableFromCloses("TEST", 100, 105, 110)
	backtester, err := NewVectorizedBacktester(TestConfig(1000), nil)
	suite.Require().NoError(err)

	provider := mocks.NewMockSignalProvider(ctrl)
	provider.EXPECT().Name().Return("always-long").AnyTimes()
	provider.EXPECT().GenerateSignal(table).Return(ones(3), nil)

	result, err := backtester.RunProvider(context.Background(), table, provider, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.InDelta(1100.0, result.FinalEquity(), 1e-9)

	failing := mocks.NewMockSignalProvider(ctrl)
	failing.EXPECT().Name().Return("broken").AnyTimes()
	failing.EXPECT().GenerateSignal(gomock.Any()).Return(nil, fmt.Errorf("no model"))

	_, err = backtester.RunProvider(context.Background(), table, failing, engine.LifecycleCallbacks{})
	suite.ErrorContains(err, "no model")

	_, err = backtester.RunProvider(context.Background(), table, nil, engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *VectorizedBacktesterTestSuite) TestLifecycleCallbacks() {
	table := mocks.TableFromCloses("TEST", 100, 101, 102)
	backtester, err := NewVectorizedBacktester(TestConfig(1000), nil)
	suite.Require().NoError(err)

	var (
		engineType engine.EngineType
		calls      int
		runID      string
	)

	onStart := engine.OnRunStartCallback(func(id string, t engine.EngineType, _ int) error {
		engineType = t
		runID = id

		return nil
	})
	onProcess := engine.OnProcessDataCallback(func(_, _ int) error {
		calls++

		return nil
	})

	result, err := backtester.Run(context.Background(), table, ones(3), engine.LifecycleCallbacks{
		OnRunStart:    &onStart,
		OnProcessData: &onProcess,
	})
	suite.Require().NoError(err)

	suite.Equal(engine.EngineTypeVectorized, engineType)
	suite.Equal(3, calls)
	suite.Equal(runID, result.Metadata[types.MetadataKeyRunID])
}

// A buy-and-hold of the whole capital on the first bar and an always-long signal
// compound the same bar returns, so the two engines must agree bar by bar.
func (suite *VectorizedBacktesterTestSuite) TestEnginesAgreeOnBuyAndHold() {
	config := mocks.DefaultConfig()
	config.Count = 200
	table := mocks.NewDataGenerator(7).GenerateTable(config)

	capital := 10_000.0
	vectorized := suite.run(TestConfig(capital), table, ones(table.Len()))

	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	strategy := mocks.NewMockEventStrategy(ctrl)
	strategy.EXPECT().Name().Return("buy-and-hold").AnyTimes()
	strategy.EXPECT().OnBar(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx engine.BarContext, _ engine.PortfolioView) optional.Option[types.Order] {
			if ctx.Index != 0 {
				return optional.None[types.Order]()
			}

			order, err := types.NewMarketOrder(ctx.Bar.Symbol, types.PurchaseTypeBuy, capital/ctx.Bar.Close, ctx.Bar.Time)
			suite.Require().NoError(err)

			return optional.Some(order)
		},
	).AnyTimes()

	eventBacktester, err := NewEventBacktester(TestConfig(capital), nil)
	suite.Require().NoError(err)

	event, err := eventBacktester.Run(context.Background(), table, strategy, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	vectorizedEquity := vectorized.EquityCurve.Values()
	for i, value := range event.EquityCurve.Values() {
		suite.InEpsilon(vectorizedEquity[i], value, 1e-9, "bar %d", i)
	}
}

func (suite *VectorizedBacktesterTestSuite) TestEquityCurve() {
	suite.InDeltaSlice([]float64{100, 110, 99}, EquityCurve([]float64{0, 0.1, -0.1}, 100), 1e-9)
	suite.Equal([]float64{100, 0, 0}, EquityCurve([]float64{0, -1.5, 0.2}, 100))
	suite.Empty(EquityCurve(nil, 100))
}
