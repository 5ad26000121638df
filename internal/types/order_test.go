package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{
			name: "Valid market order",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      PurchaseTypeBuy,
				OrderType: OrderTypeMarket,
				Quantity:  10,
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name: "Valid stop order",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      PurchaseTypeSell,
				OrderType: OrderTypeStop,
				Quantity:  10,
				StopPrice: optional.Some(90.0),
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name: "Zero quantity",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      PurchaseTypeBuy,
				OrderType: OrderTypeMarket,
				Quantity:  0,
			},
			wantErr: true,
		},
		{
			name: "Negative quantity",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      PurchaseTypeBuy,
				OrderType: OrderTypeMarket,
				Quantity:  -5,
			},
			wantErr: true,
		},
		{
			name: "Invalid id",
			order: Order{
				ID:        "not-a-uuid",
				Symbol:    "AAPL",
				Side:      PurchaseTypeBuy,
				OrderType: OrderTypeMarket,
				Quantity:  1,
			},
			wantErr: true,
		},
		{
			name: "Unknown side",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      "HOLD",
				OrderType: OrderTypeMarket,
				Quantity:  1,
			},
			wantErr: true,
		},
		{
			name: "Limit order without price",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      PurchaseTypeBuy,
				OrderType: OrderTypeLimit,
				Quantity:  1,
			},
			wantErr: true,
		},
		{
			name: "Limit order with stop price",
			order: Order{
				ID:         uuid.New().String(),
				Symbol:     "AAPL",
				Side:       PurchaseTypeBuy,
				OrderType:  OrderTypeLimit,
				Quantity:   1,
				LimitPrice: optional.Some(100.0),
				StopPrice:  optional.Some(99.0),
			},
			wantErr: true,
		},
		{
			name: "Stop order with non-positive price",
			order: Order{
				ID:        uuid.New().String(),
				Symbol:    "AAPL",
				Side:      PurchaseTypeSell,
				OrderType: OrderTypeStop,
				Quantity:  1,
				StopPrice: optional.Some(0.0),
			},
			wantErr: true,
		},
		{
			name: "Market order with trigger price",
			order: Order{
				ID:         uuid.New().String(),
				Symbol:     "AAPL",
				Side:       PurchaseTypeBuy,
				OrderType:  OrderTypeMarket,
				Quantity:   1,
				LimitPrice: optional.Some(100.0),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderConstructors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	market, err := NewMarketOrder("AAPL", PurchaseTypeBuy, 5, now)
	assert.NoError(t, err)
	assert.Equal(t, OrderTypeMarket, market.OrderType)
	assert.True(t, market.TriggerPrice().IsNone())
	assert.NoError(t, uuid.Validate(market.ID))

	limit, err := NewLimitOrder("AAPL", PurchaseTypeSell, 5, 110, now)
	assert.NoError(t, err)
	assert.Equal(t, 110.0, limit.TriggerPrice().Unwrap())
	assert.True(t, limit.StopPrice.IsNone())

	stop, err := NewStopOrder("AAPL", PurchaseTypeSell, 5, 90, now)
	assert.NoError(t, err)
	assert.Equal(t, 90.0, stop.TriggerPrice().Unwrap())
	assert.True(t, stop.LimitPrice.IsNone())

	_, err = NewStopOrder("AAPL", PurchaseTypeSell, 5, -1, now)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = NewMarketOrder("AAPL", PurchaseTypeBuy, 0, now)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func TestPurchaseType(t *testing.T) {
	assert.Equal(t, PurchaseTypeSell, PurchaseTypeBuy.Opposite())
	assert.Equal(t, PurchaseTypeBuy, PurchaseTypeSell.Opposite())
	assert.Equal(t, 1.0, PurchaseTypeBuy.Sign())
	assert.Equal(t, -1.0, PurchaseTypeSell.Sign())
}
