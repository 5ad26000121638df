package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/execution"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/portfolio"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// EventBacktester replays bars one at a time through a strategy, an execution handler and
// a portfolio. Each Run builds its own handler and portfolio, so one EventBacktester can
// serve concurrent runs as long as each run gets its own strategy.
type EventBacktester struct {
	config BacktestEngineV1Config
	log    *logger.Logger
}

var _ engine.EventEngine = (*EventBacktester)(nil)

func NewEventBacktester(config BacktestEngineV1Config, log *logger.Logger) (*EventBacktester, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &EventBacktester{
		config: config,
		log:    log,
	}, nil
}

func (b *EventBacktester) Config() BacktestEngineV1Config {
	return b.config
}

// eventCosts collects the per-bar cost series of an event run, in quote currency.
type eventCosts struct {
	funding    []float64
	borrow     []float64
	commission []float64
	slippage   []float64
}

func (c *eventCosts) append(funding, borrow float64, fills []types.Fill) {
	var commission, slippage float64
	for _, fill := range fills {
		commission += fill.Commission
		slippage += fill.SlippageCost
	}

	c.funding = append(c.funding, funding)
	c.borrow = append(c.borrow, borrow)
	c.commission = append(c.commission, commission)
	c.slippage = append(c.slippage, slippage)
}

// Run replays table through strategy. Per bar it marks to market at the close, charges
// carry costs, settles pending orders, asks the strategy for an order, executes or queues
// it and records the equity snapshot. Configuration problems are reported before the
// first bar; the bar loop itself is never interrupted by ctx.
func (b *EventBacktester) Run(
	ctx context.Context,
	table types.BarTable,
	strategy engine.EventStrategy,
	callbacks engine.LifecycleCallbacks,
) (result *types.BacktestResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed, err := datasource.NewBarFeed(table)
	if err != nil {
		return nil, err
	}

	if strategy == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "event strategy is required")
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
		if err := (*callbacks.OnRunStart)(runID, engine.EngineTypeEvent, feed.Len()); err != nil {
			return nil, fmt.Errorf("run start callback failed: %w", err)
		}
	}

	if callbacks.OnRunEnd != nil {
		defer func() {
			(*callbacks.OnRunEnd)(runID, err)
		}()
	}

	b.log.Debug("Event backtest started",
		zap.String("run_id", runID),
		zap.String("strategy", strategy.Name()),
		zap.String("symbol", table.Symbol),
		zap.Int("bars", feed.Len()),
	)

	handler := execution.NewExecutionHandler(slippage, b.config.CommissionFee(), b.log)
	book := portfolio.NewPortfolio(b.config.InitialCapital, b.log)
	positions := make([]float64, 0, feed.Len())
	costSeries := &eventCosts{}

	for i, bar := range feed.All() {
		book.UpdateMarketValue(bar)
		carry := book.ApplyCarryCosts(fundingRates[i], borrowRates[i])

		fills := handler.CheckPendingOrders(bar)
		if err := applyFills(book, fills); err != nil {
			return nil, err
		}

		order := strategy.OnBar(engine.BarContext{
			Index:   i,
			Bar:     bar,
			History: feed.History(i),
		}, book)

		if order.IsSome() {
			marketFills, err := b.submit(handler, order.Unwrap(), bar)
			if err != nil {
				return nil, err
			}

			if err := applyFills(book, marketFills); err != nil {
				return nil, err
			}

			fills = append(fills, marketFills...)
		}

		if err := book.RecordSnapshot(bar.Time); err != nil {
			return nil, err
		}

		positions = append(positions, book.NetPosition())
		costSeries.append(carry.Funding, carry.Borrow, fills)

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i+1, feed.Len()); err != nil {
				return nil, fmt.Errorf("process data callback failed: %w", err)
			}
		}
	}

	result = b.buildResult(runID, table, book, positions, costSeries)

	b.log.Debug("Event backtest finished",
		zap.String("run_id", runID),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.FinalEquity()),
	)

	return result, nil
}

func applyFills(book *portfolio.Portfolio, fills []types.Fill) error {
	for _, fill := range fills {
		if err := book.ApplyFill(fill); err != nil {
			return fmt.Errorf("failed to apply fill: %w", err)
		}
	}

	return nil
}

// submit executes a MARKET order right away and queues anything else. Orders built by
// hand get an ID and the bar's symbol when they carry none.
func (b *EventBacktester) submit(handler *execution.ExecutionHandler, order types.Order, bar types.Bar) ([]types.Fill, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	if order.Symbol == "" {
		order.Symbol = bar.Symbol
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = bar.Time
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if order.OrderType != types.OrderTypeMarket {
		return nil, handler.SubmitPending(order)
	}

	fill := handler.Execute(order, bar)
	if fill.IsNone() {
		return nil, nil
	}

	return []types.Fill{fill.Unwrap()}, nil
}

func (b *EventBacktester) buildResult(
	runID string,
	table types.BarTable,
	book *portfolio.Portfolio,
	positions []float64,
	costSeries *eventCosts,
) *types.BacktestResult {
	equity := book.EquityHistory()
	times := equity.Times()
	equityValues := equity.Values()
	returns := equityReturns(equityValues)
	trades := book.TradeLog()

	costs := map[string][]float64{
		types.CostFunding:    costSeries.funding,
		types.CostBorrow:     costSeries.borrow,
		types.CostCommission: costSeries.commission,
		types.CostSlippage:   costSeries.slippage,
	}

	costMap := make(map[string]types.TimeSeries, len(costs))
	for name, values := range costs {
		costMap[name] = types.NewTimeSeries(times, values)
	}

	return &types.BacktestResult{
		EquityCurve: equity,
		Returns:     types.NewTimeSeries(times, returns),
		Positions:   types.NewTimeSeries(times, positions),
		Trades:      trades,
		Metrics: metrics.Calculate(metrics.Input{
			Returns:     returns,
			Equity:      equityValues,
			Positions:   positions,
			Trades:      optional.Some(trades),
			Costs:       costs,
			BarsPerYear: b.config.BarsPerYear,
		}),
		Costs: costMap,
		Metadata: map[string]string{
			types.MetadataKeyType:          types.ResultTypeEventDriven,
			types.MetadataKeyRunID:         runID,
			types.MetadataKeyEngineVersion: version.GetVersion(),
			types.MetadataKeySymbol:        table.Symbol,
		},
	}
}

// equityReturns is the bar-over-bar percentage change of equity with the first bar 0.
// A bar following zero equity reports 0.
func equityReturns(equity []float64) []float64 {
	out := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}

		out[i] = equity[i]/equity[i-1] - 1
	}

	return out
}
