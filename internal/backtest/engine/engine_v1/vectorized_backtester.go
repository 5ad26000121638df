package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// VectorizedBacktester computes a whole run from a signal series in a few passes over the
// bars. Costs are fractions of capital, the same conventions the event engine charges in
// quote currency.
type VectorizedBacktester struct {
	config BacktestEngineV1Config
	log    *logger.Logger
}

var _ engine.VectorizedEngine = (*VectorizedBacktester)(nil)

func NewVectorizedBacktester(config BacktestEngineV1Config, log *logger.Logger) (*VectorizedBacktester, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &VectorizedBacktester{
		config: config,
		log:    log,
	}, nil
}

func (b *VectorizedBacktester) Config() BacktestEngineV1Config {
	return b.config
}

// RunProvider asks provider for signals over table and runs them.
func (b *VectorizedBacktester) RunProvider(
	ctx context.Context,
	table types.BarTable,
	provider engine.SignalProvider,
	callbacks engine.LifecycleCallbacks,
) (*types.BacktestResult, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "signal provider is required")
	}

	signals, err := provider.GenerateSignal(table)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signals from %s: %w", provider.Name(), err)
	}

	return b.Run(ctx, table, signals, callbacks)
}

// Run backtests a state signal series: 1 long, -1 short, 0 per the zero signal policy.
// The signal observed on bar i sets the position held from bar i to bar i+1, so it first
// earns the return of bar i+1.
func (b *VectorizedBacktester) Run(
	ctx context.Context,
	table types.BarTable,
	signals []float64,
	callbacks engine.LifecycleCallbacks,
) (result *types.BacktestResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := table.Validate(types.ColumnClose, types.ColumnVolume); err != nil {
		return nil, err
	}

	n := table.Len()
	if len(signals) != n {
		return nil, errors.Newf(errors.ErrCodeSignalLength, "signal has %d values but the data has %d bars", len(signals), n)
	}

	fundingRates, borrowRates, err := b.config.perBarRates(table)
	if err != nil {
		return nil, err
	}

	slippage, err := b.config.SlippageModel()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, engine.EngineTypeVectorized, n); err != nil {
			return nil, fmt.Errorf("run start callback failed: %w", err)
		}
	}

	if callbacks.OnRunEnd != nil {
		defer func() {
			(*callbacks.OnRunEnd)(runID, err)
		}()
	}

	b.log.Debug("Vectorized backtest started",
		zap.String("run_id", runID),
		zap.String("symbol", table.Symbol),
		zap.Int("bars", n),
		zap.String("zero_signal_policy", string(b.config.ZeroSignal)),
	)

	closes := table.Closes()
	volumes := table.Volumes()
	capital := b.config.InitialCapital

	positions := AlignPositions(signals, b.config.ZeroSignal)
	marketReturns := marketReturns(closes)
	turnover := costs.Turnover(positions)

	units := make([]float64, n)
	for i := range n {
		if closes[i] != 0 {
			units[i] = turnover[i] * capital / closes[i]
		}
	}

	rawSlippage := slippage.Calculate(units, volumes, closes)

	transaction := make([]float64, n)
	slippageCost := make([]float64, n)
	funding := make([]float64, n)
	borrow := make([]float64, n)
	net := make([]float64, n)

	for i := range n {
		transaction[i] = turnover[i] * b.config.TransactionCost
		slippageCost[i] = finiteOrZero(rawSlippage[i] / capital)
		funding[i] = math.Abs(positions[i]) * fundingRates[i]

		if positions[i] < 0 {
			borrow[i] = borrowRates[i]
		}

		gross := positions[i] * marketReturns[i]
		net[i] = gross - transaction[i] - slippageCost[i] - funding[i] - borrow[i]

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i+1, n); err != nil {
				return nil, fmt.Errorf("process data callback failed: %w", err)
			}
		}
	}

	equity := EquityCurve(net, capital)
	trades := reconstructTrades(table, positions, net)

	costSeries := map[string][]float64{
		types.CostTransaction: transaction,
		types.CostSlippage:    slippageCost,
		types.CostFunding:     funding,
		types.CostBorrow:      borrow,
	}

	times := table.Times()
	costMap := make(map[string]types.TimeSeries, len(costSeries))

	for name, values := range costSeries {
		costMap[name] = types.NewTimeSeries(times, values)
	}

	result = &types.BacktestResult{
		EquityCurve: types.NewTimeSeries(times, equity),
		Returns:     types.NewTimeSeries(times, net),
		Positions:   types.NewTimeSeries(times, positions),
		Trades:      trades,
		Metrics: metrics.Calculate(metrics.Input{
			Returns:     net,
			Equity:      equity,
			Positions:   positions,
			Trades:      optional.Some(trades),
			Costs:       costSeries,
			BarsPerYear: b.config.BarsPerYear,
		}),
		Costs: costMap,
		Metadata: map[string]string{
			types.MetadataKeyType:          types.ResultTypeVectorized,
			types.MetadataKeyRunID:         runID,
			types.MetadataKeyEngineVersion: version.GetVersion(),
			types.MetadataKeySymbol:        table.Symbol,
		},
	}

	b.log.Debug("Vectorized backtest finished",
		zap.String("run_id", runID),
		zap.Int("trades", len(trades)),
		zap.Float64("final_equity", result.FinalEquity()),
	)

	return result, nil
}

// AlignPositions shifts signals one bar forward and resolves zeros. NaN signals count as 0.
// With ZeroSignalPolicyHold a 0 keeps the last non-zero state; with ZeroSignalPolicyFlat
// it closes the position.
func AlignPositions(signals []float64, policy ZeroSignalPolicy) []float64 {
	positions := make([]float64, len(signals))

	for i := 1; i < len(signals); i++ {
		signal := signals[i-1]
		if math.IsNaN(signal) {
			signal = 0
		}

		if signal == 0 && policy != ZeroSignalPolicyFlat {
			positions[i] = positions[i-1]

			continue
		}

		positions[i] = signal
	}

	return positions
}

// marketReturns is the percentage change of close with the first bar and any bar after
// a zero close set to 0.
func marketReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out[i] = finiteOrZero(closes[i]/closes[i-1] - 1)
		}
	}

	return out
}

// EquityCurve compounds net returns in log space: capital * exp(cumsum(log(1+r))).
// A return of -100% or worse wipes the account out and equity stays 0 from then on.
func EquityCurve(net []float64, capital float64) []float64 {
	out := make([]float64, len(net))

	var cumulative float64
	for i, r := range net {
		cumulative += logGrowth(r)
		out[i] = capital * math.Exp(cumulative)
	}

	return out
}

// compoundedReturn is exp(sum(log(1+r))) - 1 over returns.
func compoundedReturn(returns []float64) float64 {
	var cumulative float64
	for _, r := range returns {
		cumulative += logGrowth(r)
	}

	return math.Exp(cumulative) - 1
}

func logGrowth(r float64) float64 {
	if 1+r <= 0 {
		return math.Inf(-1)
	}

	return math.Log1p(r)
}

// reconstructTrades pairs position changes into trades. positions[i] earns the move from
// close i-1 to close i, so a position first held at bar e was entered at close e-1, and
// one replaced at bar x was exited at close x-1. Its PnL is the compounded net return of
// bars [e, x), which includes the entry costs charged at bar e. A position still open after
// the last bar is exited at the last close.
func reconstructTrades(table types.BarTable, positions []float64, net []float64) []types.TradeRecord {
	trades := []types.TradeRecord{}
	bars := table.Bars

	var (
		current  float64
		entryIdx int
	)

	// heldUntil is the first bar no longer earning the trade's position
	closeTrade := func(heldUntil int) {
		side := types.PurchaseTypeBuy
		if current < 0 {
			side = types.PurchaseTypeSell
		}

		entry := bars[entryIdx-1]
		exit := bars[heldUntil-1]

		trades = append(trades, types.TradeRecord{
			Symbol:      table.Symbol,
			Side:        side,
			EntryPrice:  entry.Close,
			ExitPrice:   exit.Close,
			Quantity:    math.Abs(current),
			EntryTime:   entry.Time,
			ExitTime:    exit.Time,
			PnL:         optional.Some(compoundedReturn(net[entryIdx:heldUntil])),
			HoldingBars: optional.Some(heldUntil - entryIdx),
		})
	}

	for i, position := range positions {
		if position == current {
			continue
		}

		if current != 0 {
			closeTrade(i)
		}

		if position != 0 {
			entryIdx = i
		}

		current = position
	}

	if current != 0 {
		closeTrade(len(positions))
	}

	return trades
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}
