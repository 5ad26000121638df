package execution

import (
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// ExecutionHandler matches orders against bars. MARKET orders fill on the bar they are
// placed; LIMIT and STOP orders wait in a FIFO queue until a bar's range crosses their
// trigger price.
//
// Triggered orders fill at the trigger price with slippage applied on top. A live venue
// would more likely fill a gapped stop at the next bar's open; that is not modelled.
type ExecutionHandler struct {
	slippage   costs.SlippageModel
	commission costs.CommissionFee
	logger     *logger.Logger
	pending    []types.Order

	// closes feeds windowed slippage models. Only the trailing window is kept.
	closes   []float64
	lastSeen optional.Option[types.Bar]
}

func NewExecutionHandler(slippage costs.SlippageModel, commission costs.CommissionFee, log *logger.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		slippage:   slippage,
		commission: commission,
		logger:     log,
		pending:    []types.Order{},
	}
}

// observe records the bar's close once per bar for windowed slippage models.
func (h *ExecutionHandler) observe(bar types.Bar) {
	windowed, ok := h.slippage.(costs.WindowedSlippageModel)
	if !ok {
		return
	}

	if h.lastSeen.IsSome() && !bar.Time.After(h.lastSeen.Unwrap().Time) {
		return
	}

	h.lastSeen = optional.Some(bar)

	h.closes = append(h.closes, bar.Close)
	if window := windowed.Window(); len(h.closes) > window {
		h.closes = slices.Delete(h.closes, 0, len(h.closes)-window)
	}
}

func (h *ExecutionHandler) slippageCost(quantity float64, bar types.Bar, price float64) float64 {
	if windowed, ok := h.slippage.(costs.WindowedSlippageModel); ok {
		return windowed.CalculateWindow(quantity, bar.Volume, price, h.closes)
	}

	return h.slippage.CalculateSingle(quantity, bar.Volume, price)
}

// fill prices an order at base, moving the price against the trader by the slippage per unit.
func (h *ExecutionHandler) fill(order types.Order, bar types.Bar, base float64) types.Fill {
	slippageCost := h.slippageCost(order.Quantity, bar, base)

	var slippagePerUnit float64
	if base > 0 {
		slippagePerUnit = slippageCost / order.Quantity
	}

	price := base + order.Side.Sign()*slippagePerUnit

	return types.Fill{
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Side:         order.Side,
		Quantity:     order.Quantity,
		Price:        price,
		Timestamp:    bar.Time,
		Commission:   h.commission.Calculate(order.Quantity, price),
		SlippageCost: slippageCost,
	}
}

// Execute fills a MARKET order against the bar's close. It returns None for a
// non-positive quantity or a non-MARKET order.
func (h *ExecutionHandler) Execute(order types.Order, bar types.Bar) optional.Option[types.Fill] {
	h.observe(bar)

	if order.Quantity <= 0 || order.OrderType != types.OrderTypeMarket {
		return optional.None[types.Fill]()
	}

	fill := h.fill(order, bar, bar.Close)

	h.logger.Debug("Market order filled",
		zap.String("order_id", order.ID),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", fill.Quantity),
		zap.Float64("price", fill.Price))

	return optional.Some(fill)
}

// SubmitPending queues a LIMIT or STOP order.
func (h *ExecutionHandler) SubmitPending(order types.Order) error {
	if order.OrderType == types.OrderTypeMarket {
		return errors.New(errors.ErrCodeInvalidOrder, "market orders cannot be queued")
	}

	if err := order.Validate(); err != nil {
		return err
	}

	h.pending = append(h.pending, order)

	return nil
}

// CheckPendingOrders scans the queue once. Triggered orders are removed and returned as
// fills in submission order; the rest stay queued.
func (h *ExecutionHandler) CheckPendingOrders(bar types.Bar) []types.Fill {
	h.observe(bar)

	if len(h.pending) == 0 {
		return nil
	}

	var (
		fills     []types.Fill
		remaining []types.Order
	)

	for _, order := range h.pending {
		price, triggered := triggerPrice(order, bar)
		if !triggered {
			remaining = append(remaining, order)

			continue
		}

		fill := h.fill(order, bar, price)
		fills = append(fills, fill)

		h.logger.Debug("Pending order triggered",
			zap.String("order_id", order.ID),
			zap.String("order_type", string(order.OrderType)),
			zap.String("side", string(order.Side)),
			zap.Float64("trigger", price),
			zap.Float64("price", fill.Price))
	}

	h.pending = remaining

	return fills
}

// triggerPrice reports whether the bar crosses the order's trigger and at what price.
//
//	STOP BUY   high >= stop
//	STOP SELL  low  <= stop
//	LIMIT BUY  low  <= limit
//	LIMIT SELL high >= limit
func triggerPrice(order types.Order, bar types.Bar) (float64, bool) {
	trigger := order.TriggerPrice()
	if trigger.IsNone() {
		return 0, false
	}

	price := trigger.Unwrap()

	switch order.OrderType {
	case types.OrderTypeStop:
		if order.Side == types.PurchaseTypeBuy {
			return price, bar.High >= price
		}

		return price, bar.Low <= price
	case types.OrderTypeLimit:
		if order.Side == types.PurchaseTypeBuy {
			return price, bar.Low <= price
		}

		return price, bar.High >= price
	default:
		return 0, false
	}
}

// CancelAllPending clears the queue and returns how many orders were dropped.
func (h *ExecutionHandler) CancelAllPending() int {
	n := len(h.pending)
	h.pending = []types.Order{}

	return n
}

// CancelOrder removes one pending order by ID.
func (h *ExecutionHandler) CancelOrder(orderID string) bool {
	for i, order := range h.pending {
		if order.ID == orderID {
			h.pending = slices.Delete(h.pending, i, i+1)

			return true
		}
	}

	return false
}

// PendingOrders returns a copy of the queue.
func (h *ExecutionHandler) PendingOrders() []types.Order {
	return slices.Clone(h.pending)
}
