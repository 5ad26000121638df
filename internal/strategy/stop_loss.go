package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
)

const StopLossLongName = "stop_loss_long"

type StopLossLongConfig struct {
	StopPct  float64 `yaml:"stop_pct" json:"stop_pct" validate:"gt=0,lt=1" jsonschema:"title=Stop Percentage,description=Distance of the protective stop below the entry price,minimum=0,maximum=1,default=0.05"`
	Fraction float64 `yaml:"fraction" json:"fraction" validate:"gt=0,lte=1" jsonschema:"title=Fraction,description=Share of cash spent on the entry,minimum=0,maximum=1,default=1"`
}

// StopLossLong buys on the first bar and places a STOP SELL for the whole position on
// the next bar. It does not re-enter after the stop fills.
type StopLossLong struct {
	config     StopLossLongConfig
	commission costs.CommissionFee
	log        *logger.Logger
	entered    bool
	stopPlaced bool
}

var _ engine.EventStrategy = (*StopLossLong)(nil)

func NewStopLossLong(config StopLossLongConfig, env Environment) *StopLossLong {
	return &StopLossLong{
		config:     config,
		commission: commissionOrZero(env),
		log:        loggerOrNop(env),
	}
}

func stopLossLongRegistration() Registration {
	defaults := StopLossLongConfig{StopPct: 0.05, Fraction: 1}

	return Registration{
		Name:        StopLossLongName,
		Description: "Buys on the first bar and protects the position with a stop below the entry",
		Config:      defaults,
		New: func(config string, env Environment) (Strategy, error) {
			parsed, err := decodeConfig(StopLossLongName, config, defaults)
			if err != nil {
				return nil, err
			}

			return NewStopLossLong(parsed, env), nil
		},
	}
}

func (s *StopLossLong) Name() string {
	return StopLossLongName
}

func (s *StopLossLong) OnBar(ctx engine.BarContext, portfolio engine.PortfolioView) optional.Option[types.Order] {
	if !s.entered {
		quantity := utils.CalculateOrderQuantityByPercentage(portfolio.Cash(), ctx.Bar.Close, s.commission, s.config.Fraction)
		if quantity <= 0 {
			return optional.None[types.Order]()
		}

		order, err := types.NewMarketOrder(ctx.Bar.Symbol, types.PurchaseTypeBuy, quantity, ctx.Bar.Time)
		if err != nil {
			return skipRejected(s.log, s.Name(), ctx.Bar, err)
		}

		s.entered = true

		return optional.Some(order)
	}

	if s.stopPlaced {
		return optional.None[types.Order]()
	}

	position := portfolio.Position(ctx.Bar.Symbol)
	if position.IsNone() || !position.Unwrap().IsLong() {
		return optional.None[types.Order]()
	}

	held := position.Unwrap()
	stop := held.EntryPrice * (1 - s.config.StopPct)

	order, err := types.NewStopOrder(ctx.Bar.Symbol, types.PurchaseTypeSell, held.Quantity, stop, ctx.Bar.Time)
	if err != nil {
		return skipRejected(s.log, s.Name(), ctx.Bar, err)
	}

	s.stopPlaced = true

	return optional.Some(order)
}
