package walkforward

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultOOSReservePct  = 0.2
	DefaultInitialCapital = 10_000.0
	DefaultBarsPerYear    = 365
)

// SplitRunner backtests one split. Implementations build a fresh strategy per call, so
// concurrent calls share no mutable state.
type SplitRunner interface {
	Run(ctx context.Context, train, test types.BarTable) (*types.BacktestResult, error)
}

// TrainTestSplit is one walk-forward window: train bars followed directly by test bars.
type TrainTestSplit struct {
	Index      int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	Train      types.BarTable
	Test       types.BarTable
}

// SplitResult is the backtest of one split's test segment.
type SplitResult struct {
	Index      int                   `yaml:"index" json:"index"`
	TrainStart time.Time             `yaml:"train_start" json:"train_start"`
	TrainEnd   time.Time             `yaml:"train_end" json:"train_end"`
	TestStart  time.Time             `yaml:"test_start" json:"test_start"`
	TestEnd    time.Time             `yaml:"test_end" json:"test_end"`
	Metrics    map[string]float64    `yaml:"metrics" json:"-"`
	Result     *types.BacktestResult `yaml:"-" json:"result"`
}

// WalkForwardResult stitches the out-of-sample segments of every split in chronological
// order. AggregateMetrics is computed once over the stitched series.
type WalkForwardResult struct {
	Splits           []SplitResult              `yaml:"splits" json:"splits"`
	AggregateMetrics map[string]float64         `yaml:"aggregate_metrics" json:"aggregate_metrics"`
	OOSEquityCurve   types.TimeSeries           `yaml:"oos_equity_curve" json:"oos_equity_curve"`
	OOSReturns       types.TimeSeries           `yaml:"oos_returns" json:"oos_returns"`
	OOSPositions     types.TimeSeries           `yaml:"oos_positions" json:"oos_positions"`
	Trades           []types.TradeRecord        `yaml:"trades" json:"trades"`
	ReservedBars     int                        `yaml:"reserved_bars" json:"reserved_bars"`
	ReserveStart     optional.Option[time.Time] `yaml:"reserve_start" json:"reserve_start"`
}

// Validator slices data into sliding train/test windows after holding back the most
// recent OOSReservePct of the bars. The reserve is never handed to a runner.
type Validator struct {
	oosReservePct  float64
	concurrency    int
	seed           uint64
	initialCapital float64
	barsPerYear    int
	log            *logger.Logger
}

type Option func(*Validator)

// WithConcurrency bounds how many splits or Monte-Carlo trials run at once.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		v.concurrency = n
	}
}

// WithSeed makes Monte-Carlo trials reproducible.
func WithSeed(seed uint64) Option {
	return func(v *Validator) {
		v.seed = seed
	}
}

// WithInitialCapital sets the capital the stitched equity curve starts from.
func WithInitialCapital(capital float64) Option {
	return func(v *Validator) {
		v.initialCapital = capital
	}
}

// WithBarsPerYear sets the annualization used by the aggregate metrics.
func WithBarsPerYear(barsPerYear int) Option {
	return func(v *Validator) {
		v.barsPerYear = barsPerYear
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(v *Validator) {
		v.log = log
	}
}

// NewValidator creates a validator reserving oosReservePct of the data, which must be
// in [0, 1).
func NewValidator(oosReservePct float64, opts ...Option) (*Validator, error) {
	if math.IsNaN(oosReservePct) || oosReservePct < 0 || oosReservePct >= 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "oos reserve pct must be in [0, 1), got %v", oosReservePct)
	}

	v := &Validator{
		oosReservePct:  oosReservePct,
		concurrency:    runtime.GOMAXPROCS(0),
		seed:           uint64(time.Now().UnixNano()),
		initialCapital: DefaultInitialCapital,
		barsPerYear:    DefaultBarsPerYear,
		log:            logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.concurrency <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "concurrency must be positive, got %d", v.concurrency)
	}

	if v.initialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial capital must be positive, got %v", v.initialCapital)
	}

	if v.barsPerYear <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bars per year must be positive, got %d", v.barsPerYear)
	}

	if v.log == nil {
		v.log = logger.NewNopLogger()
	}

	return v, nil
}

// reserveIndex is the first bar of the reserved tail.
func (v *Validator) reserveIndex(n int) int {
	return int(float64(n) * (1 - v.oosReservePct))
}

// GenerateSplits slides a train+test window across the non-reserved bars, advancing by
// step. step must be at least testWindow so test windows never overlap and every
// out-of-sample bar is stitched once. It fails with an InsufficientDataError when not even
// one window fits.
func (v *Validator) GenerateSplits(table types.BarTable, trainWindow, testWindow, step int) ([]TrainTestSplit, error) {
	if trainWindow <= 0 || testWindow <= 0 || step <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"train window, test window and step must be positive, got %d, %d and %d", trainWindow, testWindow, step)
	}

	if step < testWindow {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"step %d is shorter than the test window %d, so test windows would overlap", step, testWindow)
	}

	n := table.Len()
	available := v.reserveIndex(n)
	required := trainWindow + testWindow

	if available < required {
		return nil, errors.NewInsufficientDataErrorf(required, available, n-available,
			"after reserving %.0f%% of the data as out-of-sample, only %d bars remain; need at least %d (train window %d + test window %d)",
			v.oosReservePct*100, available, required, trainWindow, testWindow)
	}

	var splits []TrainTestSplit

	for start := 0; start+required <= available; start += step {
		trainEnd := start + trainWindow
		testEnd := trainEnd + testWindow

		train := table.Slice(start, trainEnd)
		test := table.Slice(trainEnd, testEnd)

		splits = append(splits, TrainTestSplit{
			Index:      len(splits),
			TrainStart: train.Bars[0].Time,
			TrainEnd:   train.Bars[train.Len()-1].Time,
			TestStart:  test.Bars[0].Time,
			TestEnd:    test.Bars[test.Len()-1].Time,
			Train:      train,
			Test:       test,
		})
	}

	return splits, nil
}

// Validate runs every split through runner and aggregates the out-of-sample results.
// Splits run concurrently; the context is checked before each split starts and the
// first failing split cancels those not yet started.
func (v *Validator) Validate(
	ctx context.Context,
	table types.BarTable,
	runner SplitRunner,
	trainWindow, testWindow, step int,
) (*WalkForwardResult, error) {
	if runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "split runner is required")
	}

	splits, err := v.GenerateSplits(table, trainWindow, testWindow, step)
	if err != nil {
		return nil, err
	}

	v.log.Info("Walk-forward validation started",
		zap.String("symbol", table.Symbol),
		zap.Int("bars", table.Len()),
		zap.Int("splits", len(splits)),
		zap.Int("reserved_bars", table.Len()-v.reserveIndex(table.Len())),
	)

	results := make([]SplitResult, len(splits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for _, split := range splits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			v.log.Debug("Running walk-forward split", zap.Stringer("split", split))

			result, err := runner.Run(gctx, split.Train, split.Test)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeWalkForwardFailed, err, "split %d (%s to %s) failed",
					split.Index, split.TestStart.Format(time.RFC3339), split.TestEnd.Format(time.RFC3339))
			}

			results[split.Index] = SplitResult{
				Index:      split.Index,
				TrainStart: split.TrainStart,
				TrainEnd:   split.TrainEnd,
				TestStart:  split.TestStart,
				TestEnd:    split.TestEnd,
				Metrics:    result.Metrics,
				Result:     result,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := v.stitch(results)
	out.ReservedBars = table.Len() - v.reserveIndex(table.Len())

	if idx := v.reserveIndex(table.Len()); idx < table.Len() {
		out.ReserveStart = optional.Some(table.Bars[idx].Time)
	}

	v.log.Info("Walk-forward validation finished",
		zap.Int("splits", len(results)),
		zap.Int("oos_bars", len(out.OOSReturns)),
		zap.Int("trades", len(out.Trades)),
		zap.Float64("total_return", out.AggregateMetrics[metrics.TotalReturn]),
	)

	return out, nil
}

// stitch concatenates split results in split order and derives one equity curve from the
// stitched returns. Non-finite returns count as 0.
func (v *Validator) stitch(results []SplitResult) *WalkForwardResult {
	var (
		returns   types.TimeSeries
		positions types.TimeSeries
		trades    = []types.TradeRecord{}
		costs     = map[string][]float64{}
	)

	for _, split := range results {
		result := split.Result

		for _, point := range result.Returns {
			if math.IsNaN(point.Value) || math.IsInf(point.Value, 0) {
				point.Value = 0
			}

			returns = append(returns, point)
		}

		positions = append(positions, result.Positions...)
		trades = append(trades, result.Trades...)

		for _, name := range result.CostNames() {
			costs[name] = append(costs[name], result.Costs[name].Values()...)
		}
	}

	returnValues := returns.Values()
	equity := make([]float64, len(returnValues))

	value := v.initialCapital
	for i, r := range returnValues {
		value *= 1 + r
		equity[i] = value
	}

	return &WalkForwardResult{
		Splits: results,
		AggregateMetrics: metrics.Calculate(metrics.Input{
			Returns:     returnValues,
			Equity:      equity,
			Positions:   positions.Values(),
			Trades:      optional.Some(trades),
			Costs:       costs,
			BarsPerYear: v.barsPerYear,
		}),
		OOSEquityCurve: types.NewTimeSeries(returns.Times(), equity),
		OOSReturns:     returns,
		OOSPositions:   positions,
		Trades:         trades,
	}
}

func (s TrainTestSplit) String() string {
	return fmt.Sprintf("split %d: train %s..%s, test %s..%s", s.Index,
		s.TrainStart.Format(time.RFC3339), s.TrainEnd.Format(time.RFC3339),
		s.TestStart.Format(time.RFC3339), s.TestEnd.Format(time.RFC3339))
}
