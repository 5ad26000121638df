package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type PurchaseType string

type OrderType string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// Opposite returns the other side.
func (p PurchaseType) Opposite() PurchaseType {
	if p == PurchaseTypeBuy {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

// Sign returns +1 for BUY and -1 for SELL.
func (p PurchaseType) Sign() float64 {
	if p == PurchaseTypeBuy {
		return 1
	}

	return -1
}

// Order is an instruction to trade. Quantity is always positive; direction lives in Side.
// LIMIT orders carry LimitPrice, STOP orders carry StopPrice, MARKET orders carry neither.
type Order struct {
	ID         string                   `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol     string                   `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side       PurchaseType             `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	OrderType  OrderType                `yaml:"order_type" json:"order_type" csv:"order_type" validate:"required,oneof=MARKET LIMIT STOP"`
	Quantity   float64                  `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price" csv:"limit_price"`
	StopPrice  optional.Option[float64] `yaml:"stop_price" json:"stop_price" csv:"stop_price"`
	CreatedAt  time.Time                `yaml:"created_at" json:"created_at" csv:"created_at"`
}

// NewOrder creates and validates an order of any type.
func NewOrder(
	symbol string,
	side PurchaseType,
	orderType OrderType,
	quantity float64,
	limitPrice optional.Option[float64],
	stopPrice optional.Option[float64],
	createdAt time.Time,
) (Order, error) {
	order := Order{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       side,
		OrderType:  orderType,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		StopPrice:  stopPrice,
		CreatedAt:  createdAt,
	}

	if err := order.Validate(); err != nil {
		return Order{}, err
	}

	return order, nil
}

// NewMarketOrder creates a MARKET order.
func NewMarketOrder(symbol string, side PurchaseType, quantity float64, createdAt time.Time) (Order, error) {
	return NewOrder(symbol, side, OrderTypeMarket, quantity, optional.None[float64](), optional.None[float64](), createdAt)
}

// NewLimitOrder creates a LIMIT order that triggers at limitPrice.
func NewLimitOrder(symbol string, side PurchaseType, quantity, limitPrice float64, createdAt time.Time) (Order, error) {
	return NewOrder(symbol, side, OrderTypeLimit, quantity, optional.Some(limitPrice), optional.None[float64](), createdAt)
}

// NewStopOrder creates a STOP order that triggers at stopPrice.
func NewStopOrder(symbol string, side PurchaseType, quantity, stopPrice float64, createdAt time.Time) (Order, error) {
	return NewOrder(symbol, side, OrderTypeStop, quantity, optional.None[float64](), optional.Some(stopPrice), createdAt)
}

// Validate validates the order fields and the trigger price required by its type.
func (o *Order) Validate() error {
	validate := validator.New()

	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	switch o.OrderType {
	case OrderTypeMarket:
		if o.LimitPrice.IsSome() || o.StopPrice.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrder, "market order must not carry a trigger price")
		}
	case OrderTypeLimit:
		if o.StopPrice.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrder, "limit order must not carry a stop price")
		}

		if err := validateTriggerPrice("limit price", o.LimitPrice); err != nil {
			return err
		}
	case OrderTypeStop:
		if o.LimitPrice.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrder, "stop order must not carry a limit price")
		}

		if err := validateTriggerPrice("stop price", o.StopPrice); err != nil {
			return err
		}
	}

	return nil
}

// TriggerPrice returns the limit or stop price, whichever the order type uses.
func (o Order) TriggerPrice() optional.Option[float64] {
	switch o.OrderType {
	case OrderTypeLimit:
		return o.LimitPrice
	case OrderTypeStop:
		return o.StopPrice
	default:
		return optional.None[float64]()
	}
}

func validateTriggerPrice(name string, price optional.Option[float64]) error {
	if price.IsNone() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "%s is required", name)
	}

	if price.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "%s must be positive, got %v", name, price.Unwrap())
	}

	return nil
}
