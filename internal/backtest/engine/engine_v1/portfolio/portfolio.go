package portfolio

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CarryCost is what one bar of holding cost the portfolio.
type CarryCost struct {
	Funding float64
	Borrow  float64
}

// Portfolio tracks cash, open positions, closed trades and the equity history of one run.
// It is not safe for concurrent use.
type Portfolio struct {
	initialCapital float64
	cash           float64
	positions      map[string]*types.Position
	// symbols keeps positions in the order they were opened.
	symbols  []string
	trades   []types.TradeRecord
	equity   types.TimeSeries
	barCount int
	logger   *logger.Logger
}

func NewPortfolio(initialCapital float64, log *logger.Logger) *Portfolio {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*types.Position),
		symbols:        []string{},
		trades:         []types.TradeRecord{},
		equity:         types.TimeSeries{},
		logger:         log,
	}
}

// ApplyFill books a fill. Commission comes out of cash first. A fill on the same side as
// the open position increases it at the volume-weighted entry price; an opposite fill
// reduces or closes it and appends a trade record. Any quantity beyond the open position
// opens a new position on the fill's side.
func (p *Portfolio) ApplyFill(fill types.Fill) error {
	if fill.Quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "fill quantity must be positive, got %v", fill.Quantity)
	}

	p.cash -= fill.Commission

	position, ok := p.positions[fill.Symbol]
	switch {
	case !ok:
		p.open(fill, fill.Quantity)
	case position.Side == fill.Side:
		p.increase(position, fill)
	default:
		p.reduce(position, fill)
	}

	return nil
}

func (p *Portfolio) open(fill types.Fill, quantity float64) {
	position := &types.Position{
		Symbol:        fill.Symbol,
		Side:          fill.Side,
		Quantity:      quantity,
		EntryPrice:    fill.Price,
		EntryTime:     fill.Timestamp,
		EntryBarIndex: p.barCount,
	}
	position.UpdateMarketValue(fill.Price)

	p.cash -= fill.Side.Sign() * fill.Price * quantity
	p.positions[fill.Symbol] = position
	p.symbols = append(p.symbols, fill.Symbol)

	p.logger.Debug("Position opened",
		zap.String("symbol", fill.Symbol),
		zap.String("side", string(fill.Side)),
		zap.Float64("quantity", quantity),
		zap.Float64("price", fill.Price))
}

func (p *Portfolio) increase(position *types.Position, fill types.Fill) {
	oldQty := decimal.NewFromFloat(position.Quantity)
	addQty := decimal.NewFromFloat(fill.Quantity)
	totalQty := oldQty.Add(addQty)

	notional := oldQty.Mul(decimal.NewFromFloat(position.EntryPrice)).
		Add(addQty.Mul(decimal.NewFromFloat(fill.Price)))

	position.EntryPrice = notional.Div(totalQty).InexactFloat64()
	position.Quantity = totalQty.InexactFloat64()
	position.UpdateMarketValue(fill.Price)

	p.cash -= fill.Side.Sign() * fill.Price * fill.Quantity
}

func (p *Portfolio) reduce(position *types.Position, fill types.Fill) {
	closeQty := min(position.Quantity, fill.Quantity)
	ratio := closeQty / fill.Quantity

	entry := decimal.NewFromFloat(position.EntryPrice)
	exit := decimal.NewFromFloat(fill.Price)
	qty := decimal.NewFromFloat(closeQty)

	var pnl decimal.Decimal
	if position.IsLong() {
		pnl = exit.Sub(entry).Mul(qty)
	} else {
		pnl = entry.Sub(exit).Mul(qty)
	}

	// closing a long sells, closing a short buys back
	p.cash += position.Side.Sign() * fill.Price * closeQty

	p.trades = append(p.trades, types.TradeRecord{
		Symbol:      position.Symbol,
		Side:        position.Side,
		EntryPrice:  position.EntryPrice,
		ExitPrice:   fill.Price,
		Quantity:    closeQty,
		EntryTime:   position.EntryTime,
		ExitTime:    fill.Timestamp,
		PnL:         optional.Some(pnl.InexactFloat64()),
		Commission:  fill.Commission * ratio,
		Slippage:    fill.SlippageCost * ratio,
		HoldingBars: optional.Some(p.barCount - position.EntryBarIndex),
	})

	p.logger.Debug("Position reduced",
		zap.String("symbol", position.Symbol),
		zap.String("side", string(position.Side)),
		zap.Float64("quantity", closeQty),
		zap.Float64("pnl", pnl.InexactFloat64()))

	remaining := decimal.NewFromFloat(position.Quantity).Sub(qty)
	if remaining.IsPositive() {
		position.Quantity = remaining.InexactFloat64()
		position.UpdateMarketValue(fill.Price)
	} else {
		p.remove(position.Symbol)
	}

	flip := decimal.NewFromFloat(fill.Quantity).Sub(qty)
	if flip.IsPositive() {
		p.open(fill, flip.InexactFloat64())
	}
}

func (p *Portfolio) remove(symbol string) {
	delete(p.positions, symbol)
	p.symbols = slices.DeleteFunc(p.symbols, func(s string) bool { return s == symbol })
}

// UpdateMarketValue revalues open positions in the bar's symbol at its close.
// A bar without a symbol revalues every position.
func (p *Portfolio) UpdateMarketValue(bar types.Bar) {
	for _, symbol := range p.symbols {
		if bar.Symbol != "" && bar.Symbol != symbol {
			continue
		}

		p.positions[symbol].UpdateMarketValue(bar.Close)
	}
}

// ApplyCarryCosts charges one bar of funding on every position and borrow on shorts,
// using the market values from the last revaluation. A negative funding rate pays the holder.
func (p *Portfolio) ApplyCarryCosts(fundingRate, borrowRate float64) CarryCost {
	var carry CarryCost

	for _, symbol := range p.symbols {
		position := p.positions[symbol]
		carry.Funding += costs.FundingCost(position.MarketValue, fundingRate)
		carry.Borrow += costs.BorrowCost(position.MarketValue, borrowRate, !position.IsLong())
	}

	p.cash -= carry.Funding + carry.Borrow

	return carry
}

// RecordSnapshot appends the current equity at t and advances the bar count.
// Timestamps must be strictly increasing.
func (p *Portfolio) RecordSnapshot(t time.Time) error {
	if n := len(p.equity); n > 0 && !t.After(p.equity[n-1].Time) {
		return errors.Newf(errors.ErrCodeSnapshotOrder,
			"snapshot at %s is not after %s", t.Format(time.RFC3339), p.equity[n-1].Time.Format(time.RFC3339))
	}

	p.equity = append(p.equity, types.Point{Time: t, Value: p.TotalEquity()})
	p.barCount++

	return nil
}

// TotalEquity is cash plus long market value minus short market value.
func (p *Portfolio) TotalEquity() float64 {
	equity := p.cash
	for _, symbol := range p.symbols {
		position := p.positions[symbol]
		equity += position.Side.Sign() * position.MarketValue
	}

	return equity
}

func (p *Portfolio) Cash() float64 {
	return p.cash
}

func (p *Portfolio) InitialCapital() float64 {
	return p.initialCapital
}

// Position returns a copy of the open position in symbol.
func (p *Portfolio) Position(symbol string) optional.Option[types.Position] {
	position, ok := p.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(*position)
}

// Positions returns copies of the open positions in the order they were opened.
func (p *Portfolio) Positions() []types.Position {
	out := make([]types.Position, 0, len(p.symbols))
	for _, symbol := range p.symbols {
		out = append(out, *p.positions[symbol])
	}

	return out
}

// NetPosition is the sum of signed quantities across open positions.
func (p *Portfolio) NetPosition() float64 {
	var net float64
	for _, symbol := range p.symbols {
		net += p.positions[symbol].SignedQuantity()
	}

	return net
}

// TradeLog returns a copy of the closed trades.
func (p *Portfolio) TradeLog() []types.TradeRecord {
	return slices.Clone(p.trades)
}

// EquityHistory returns a copy of the recorded equity snapshots.
func (p *Portfolio) EquityHistory() types.TimeSeries {
	return slices.Clone(p.equity)
}

// BarCount is the number of snapshots recorded so far.
func (p *Portfolio) BarCount() int {
	return p.barCount
}
