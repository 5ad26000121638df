package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Fill is the result of executing an order.
// Price already includes slippage; SlippageCost reports it separately in quote currency.
type Fill struct {
	OrderID      string       `yaml:"order_id" json:"order_id" csv:"order_id"`
	Symbol       string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side         PurchaseType `yaml:"side" json:"side" csv:"side"`
	Quantity     float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price        float64      `yaml:"price" json:"price" csv:"price"`
	Timestamp    time.Time    `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Commission   float64      `yaml:"commission" json:"commission" csv:"commission"`
	SlippageCost float64      `yaml:"slippage_cost" json:"slippage_cost" csv:"slippage_cost"`
}

// Position represents the open holding in one symbol.
type Position struct {
	Symbol     string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       PurchaseType `yaml:"side" json:"side" csv:"side"`
	Quantity   float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	EntryTime  time.Time    `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	// EntryBarIndex is the portfolio bar count when the position was opened.
	EntryBarIndex int     `yaml:"entry_bar_index" json:"entry_bar_index" csv:"entry_bar_index"`
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl" csv:"unrealized_pnl"`
	// MarketValue is price * quantity and never negative. Side decides how it enters equity.
	MarketValue float64 `yaml:"market_value" json:"market_value" csv:"market_value"`
}

// UpdateMarketValue revalues the position at price. Calling it twice with the same price is a no-op.
func (p *Position) UpdateMarketValue(price float64) {
	p.MarketValue = price * p.Quantity

	if p.Side == PurchaseTypeBuy {
		p.UnrealizedPnL = (price - p.EntryPrice) * p.Quantity
	} else {
		p.UnrealizedPnL = (p.EntryPrice - price) * p.Quantity
	}
}

// SignedQuantity returns +quantity for a long and -quantity for a short.
func (p Position) SignedQuantity() float64 {
	return p.Side.Sign() * p.Quantity
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool {
	return p.Side == PurchaseTypeBuy
}

// TradeRecord is one closed (or partially closed) position.
//
// PnL is quote currency for event-driven runs and a compounded return fraction
// for vectorized runs.
type TradeRecord struct {
	Symbol      string                   `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side        PurchaseType             `yaml:"side" json:"side" csv:"side"`
	EntryPrice  float64                  `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice   float64                  `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Quantity    float64                  `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryTime   time.Time                `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitTime    time.Time                `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	PnL         optional.Option[float64] `yaml:"pnl" json:"pnl" csv:"pnl"`
	Commission  float64                  `yaml:"commission" json:"commission" csv:"commission"`
	Slippage    float64                  `yaml:"slippage" json:"slippage" csv:"slippage"`
	HoldingBars optional.Option[int]     `yaml:"holding_bars" json:"holding_bars" csv:"holding_bars"`
}
