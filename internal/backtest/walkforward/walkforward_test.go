package walkforward

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type WalkForwardTestSuite struct {
	suite.Suite
	table types.BarTable
}

func TestWalkForwardSuite(t *testing.T) {
	suite.Run(t, new(WalkForwardTestSuite))
}

func (suite *WalkForwardTestSuite) SetupTest() {
	suite.table = mocks.TableFromCloses("TEST", mocks.LinearCloses(100, 200, 100)...)
}

func (suite *WalkForwardTestSuite) newValidator(pct float64, opts ...Option) *Validator {
	validator, err := NewValidator(pct, opts...)
	suite.Require().NoError(err)

	return validator
}

// recordingRunner remembers every bar it was handed and returns an empty result.
type recordingRunner struct {
	mu   sync.Mutex
	seen []time.Time
	err  error
}

func (r *recordingRunner) Run(_ context.Context, train, test types.BarTable) (*types.BacktestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bar := range append(train.Bars, test.Bars...) {
		r.seen = append(r.seen, bar.Time)
	}

	if r.err != nil {
		return nil, r.err
	}

	times := test.Times()
	zeros := make([]float64, len(times))

	return &types.BacktestResult{
		EquityCurve: types.NewTimeSeries(times, zeros),
		Returns:     types.NewTimeSeries(times, zeros),
		Positions:   types.NewTimeSeries(times, zeros),
		Trades:      []types.TradeRecord{},
		Metrics:     map[string]float64{},
		Costs:       map[string]types.TimeSeries{},
	}, nil
}

func (suite *WalkForwardTestSuite) TestGenerateSplits() {
	splits, err := suite.newValidator(0.2).GenerateSplits(suite.table, 20, 10, 10)
	suite.Require().NoError(err)

	suite.Len(splits, 6)

	for i, split := range splits {
		suite.Equal(i, split.Index)
		suite.Equal(20, split.Train.Len())
		suite.Equal(10, split.Test.Len())
		suite.Equal(suite.table.Bars[i*10].Time, split.TrainStart)
		suite.Equal(suite.table.Bars[i*10+19].Time, split.TrainEnd)
		suite.Equal(suite.table.Bars[i*10+20].Time, split.TestStart)
		suite.Equal(suite.table.Bars[i*10+29].Time, split.TestEnd)
	}

	suite.Equal(splits[0].TestStart, splits[1].Train.Bars[10].Time)
	suite.Equal(suite.table.Bars[79].Time, splits[5].TestEnd)
}

func (suite *WalkForwardTestSuite) TestReserveIsNeverTouched() {
	tests := []struct {
		name    string
		pct     float64
		reserve int
	}{
		{"no reserve", 0, 100},
		{"ten percent", 0.1, 90},
		{"twenty percent", 0.2, 80},
		{"thirty percent", 0.3, 70},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			validator := suite.newValidator(tc.pct, WithConcurrency(3))
			runner := &recordingRunner{}

			result, err := validator.Validate(context.Background(), suite.table, runner, 20, 10, 13)
			suite.Require().NoError(err)

			suite.Equal(100-tc.reserve, result.ReservedBars)
			suite.NotEmpty(runner.seen)

			for _, seen := range runner.seen {
				if tc.reserve < suite.table.Len() {
					suite.True(seen.Before(suite.table.Bars[tc.reserve].Time), "bar %s is in the reserve", seen)
				}
			}

			if tc.reserve < suite.table.Len() {
				suite.Equal(suite.table.Bars[tc.reserve].Time, result.ReserveStart.Unwrap())
			} else {
				suite.True(result.ReserveStart.IsNone())
			}
		})
	}
}

func (suite *WalkForwardTestSuite) TestLargerReserveMeansFewerSplits() {
	ten, err := suite.newValidator(0.1).GenerateSplits(suite.table, 20, 10, 10)
	suite.Require().NoError(err)

	thirty, err := suite.newValidator(0.3).GenerateSplits(suite.table, 20, 10, 10)
	suite.Require().NoError(err)

	suite.Greater(len(ten), len(thirty))
}

func (suite *WalkForwardTestSuite) TestInsufficientData() {
	small := mocks.TableFromCloses("TEST", mocks.LinearCloses(100, 110, 10)...)

	_, err := suite.newValidator(0.2).GenerateSplits(small, 20, 10, 10)
	suite.Require().Error(err)
	suite.True(errors.IsInsufficientDataError(err))
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientData))
	suite.True(errors.IsConfigurationError(err))
	suite.Contains(err.Error(), "only 8 bars remain")

	var insufficient *errors.InsufficientDataError
	suite.Require().True(errors.As(err, &insufficient))
	suite.Equal(30, insufficient.Required)
	suite.Equal(8, insufficient.Available)
	suite.Equal(2, insufficient.Reserved)

	empty := mocks.TableFromCloses("TEST")
	_, err = suite.newValidator(0.2).Validate(context.Background(), empty, &recordingRunner{}, 1, 1, 1)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *WalkForwardTestSuite) TestInvalidParameters() {
	for _, pct := range []float64{-0.1, 1, 1.5} {
		_, err := NewValidator(pct)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter), "pct %v", pct)
	}

	_, err := NewValidator(0.2, WithConcurrency(0))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = NewValidator(0.2, WithInitialCapital(0))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	validator := suite.newValidator(0.2)
	for _, windows := range [][3]int{{0, 10, 10}, {20, 0, 10}, {20, 10, 0}, {20, 10, 5}, {20, 10, 9}} {
		_, err := validator.GenerateSplits(suite.table, windows[0], windows[1], windows[2])
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter), "%v", windows)
	}

	_, err = validator.Validate(context.Background(), suite.table, nil, 20, 10, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *WalkForwardTestSuite) TestOverlappingTestWindowsAreRejected() {
	runner := &recordingRunner{}

	_, err := suite.newValidator(0.2).Validate(context.Background(), suite.table, runner, 20, 10, 5)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Contains(err.Error(), "overlap")
	suite.Empty(runner.seen)
}

func (suite *WalkForwardTestSuite) TestStitchedSeriesIsStrictlyChronological() {
	tests := []struct {
		name      string
		step      int
		oosPoints int
	}{
		{"adjacent test windows", 10, 60},
		{"gaps between test windows", 15, 40},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result, err := suite.newValidator(0.2).Validate(context.Background(), suite.table, &recordingRunner{}, 20, 10, tc.step)
			suite.Require().NoError(err)

			suite.Len(result.OOSReturns, tc.oosPoints)
			suite.Len(result.OOSEquityCurve, tc.oosPoints)

			times := result.OOSReturns.Times()
			for i := 1; i < len(times); i++ {
				suite.True(times[i].After(times[i-1]), "bar %d at %s repeats or goes back", i, times[i])
			}
		})
	}
}

func (suite *WalkForwardTestSuite) TestValidateWithVectorizedRunner() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	backtester, err := v1.NewVectorizedBacktester(v1.TestConfig(1000), nil)
	suite.Require().NoError(err)

	var built atomic.Int32

	runner := v1.NewVectorizedRunner(backtester, func(train types.BarTable) (engine.SignalProvider, error) {
		suite.Equal(20, train.Len())
		built.Add(1)

		provider := mocks.NewMockSignalProvider(ctrl)
		provider.EXPECT().Name().Return("always-long").AnyTimes()
		provider.EXPECT().GenerateSignal(gomock.Any()).DoAndReturn(func(test types.BarTable) ([]float64, error) {
			signals := make([]float64, test.Len())
			for i := range signals {
				signals[i] = 1
			}

			return signals, nil
		})

		return provider, nil
	})

	validator := suite.newValidator(0.2, WithInitialCapital(1000), WithConcurrency(4))

	result, err := validator.Validate(context.Background(), suite.table, runner, 20, 10, 10)
	suite.Require().NoError(err)

	suite.Equal(int32(6), built.Load())
	suite.Len(result.Splits, 6)
	suite.Len(result.OOSEquityCurve, 60)
	suite.Len(result.OOSReturns, 60)
	suite.Len(result.OOSPositions, 60)
	suite.Contains(result.AggregateMetrics, metrics.TotalReturn)
	suite.Len(result.Trades, 6)

	// each test segment is long from its second bar to its last
	expected := 1000.0
	for i, split := range result.Splits {
		suite.Equal(i, split.Index)
		suite.Equal(split.TestStart, split.Result.EquityCurve[0].Time)

		closes := suite.table.Closes()
		expected *= closes[split.Index*10+29] / closes[split.Index*10+20]
	}

	suite.InDelta(expected, result.OOSEquityCurve.Last(), 1e-6)
	suite.InDelta(expected/1000-1, result.AggregateMetrics[metrics.TotalReturn], 1e-9)

	for i := 1; i < len(result.OOSReturns); i++ {
		suite.True(result.OOSReturns[i].Time.After(result.OOSReturns[i-1].Time))
	}
}

func (suite *WalkForwardTestSuite) TestValidateWithEventRunner() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	backtester, err := v1.NewEventBacktester(v1.TestConfig(1000), nil)
	suite.Require().NoError(err)

	runner := v1.NewEventRunner(backtester, func(types.BarTable) (engine.EventStrategy, error) {
		strategy := mocks.NewMockEventStrategy(ctrl)
		strategy.EXPECT().Name().Return("enter-and-hold").AnyTimes()
		strategy.EXPECT().OnBar(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx engine.BarContext, portfolio engine.PortfolioView) optional.Option[types.Order] {
				if ctx.Index != 0 {
					return optional.None[types.Order]()
				}

				order, err := types.NewMarketOrder(ctx.Bar.Symbol, types.PurchaseTypeBuy, portfolio.Cash()/ctx.Bar.Close, ctx.Bar.Time)
				suite.Require().NoError(err)

				return optional.Some(order)
			},
		).Times(10)

		return strategy, nil
	})

	result, err := suite.newValidator(0.2, WithInitialCapital(1000)).Validate(context.Background(), suite.table, runner, 20, 10, 10)
	suite.Require().NoError(err)

	suite.Len(result.Splits, 6)
	suite.Len(result.OOSEquityCurve, 60)

	for _, split := range result.Splits {
		suite.Equal(types.ResultTypeEventDriven, split.Result.Metadata[types.MetadataKeyType])
	}
}

func (suite *WalkForwardTestSuite) TestRunnerErrorFailsValidation() {
	runner := &recordingRunner{err: fmt.Errorf("model diverged")}

	result, err := suite.newValidator(0.2).Validate(context.Background(), suite.table, runner, 20, 10, 10)
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeWalkForwardFailed))
	suite.ErrorContains(err, "model diverged")
}

func (suite *WalkForwardTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &recordingRunner{}

	_, err := suite.newValidator(0.2).Validate(ctx, suite.table, runner, 20, 10, 10)
	suite.ErrorIs(err, context.Canceled)
	suite.Empty(runner.seen)
}

func (suite *WalkForwardTestSuite) TestSummary() {
	validator := suite.newValidator(0.2, WithInitialCapital(500))

	result, err := validator.Validate(context.Background(), suite.table, &recordingRunner{}, 20, 10, 10)
	suite.Require().NoError(err)

	monteCarlo := &MonteCarloResult{Simulations: 3}
	summary := result.Summary(monteCarlo)

	suite.Len(summary.Splits, 6)
	suite.Equal(60, summary.OOSBars)
	suite.Equal(0, summary.Trades)
	suite.Equal(20, summary.ReservedBars)
	suite.Require().NotNil(summary.FinalEquity)
	suite.InDelta(500, *summary.FinalEquity, 1e-9)
	suite.Require().NotNil(summary.ReserveStart)
	suite.Equal(suite.table.Bars[80].Time, *summary.ReserveStart)
	suite.Same(monteCarlo, summary.MonteCarlo)

	// flat returns leave ratio metrics undefined, which must still encode
	data, err := summary.ToJSON()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal(data, &decoded))
	suite.Contains(decoded, "aggregate_metrics")

	yamlData, err := summary.ToYAML()
	suite.Require().NoError(err)
	suite.Contains(string(yamlData), "oos_bars: 60")
}
