package strategy

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
)

const RSIName = "rsi"

type RSIConfig struct {
	Period int     `yaml:"period" json:"period" validate:"gte=2" jsonschema:"title=Period,description=Look-back period of the relative strength index,minimum=2,default=14"`
	Low    float64 `yaml:"low" json:"low" validate:"gt=0,ltfield=High" jsonschema:"title=Low,description=Buy at or below this level,minimum=0,maximum=100,default=30"`
	High   float64 `yaml:"high" json:"high" validate:"lt=100" jsonschema:"title=High,description=Sell at or above this level,minimum=0,maximum=100,default=70"`
}

// RSI buys when the relative strength index is at or below Low and sells when it is at
// or above High. The event form is long only; the signal form goes short at High.
type RSI struct {
	config     RSIConfig
	commission costs.CommissionFee
	log        *logger.Logger
}

var (
	_ engine.EventStrategy  = (*RSI)(nil)
	_ engine.SignalProvider = (*RSI)(nil)
)

func NewRSI(config RSIConfig, env Environment) *RSI {
	return &RSI{
		config:     config,
		commission: commissionOrZero(env),
		log:        loggerOrNop(env),
	}
}

func rsiRegistration() Registration {
	defaults := RSIConfig{Period: 14, Low: 30, High: 70}

	return Registration{
		Name:        RSIName,
		Description: "Mean reversion on the relative strength index: buy oversold, sell overbought",
		Config:      defaults,
		New: func(config string, env Environment) (Strategy, error) {
			parsed, err := decodeConfig(RSIName, config, defaults)
			if err != nil {
				return nil, err
			}

			return NewRSI(parsed, env), nil
		},
	}
}

func (s *RSI) Name() string {
	return RSIName
}

func (s *RSI) state(value float64) types.SignalState {
	switch {
	case math.IsNaN(value):
		return types.SignalStateNone
	case value <= s.config.Low:
		return types.SignalStateLong
	case value >= s.config.High:
		return types.SignalStateShort
	default:
		return types.SignalStateNone
	}
}

func (s *RSI) OnBar(ctx engine.BarContext, portfolio engine.PortfolioView) optional.Option[types.Order] {
	closes := ctx.History.Closes()
	if len(closes) <= s.config.Period {
		return optional.None[types.Order]()
	}

	values, err := indicator.RSI(closes, s.config.Period)
	if err != nil {
		return optional.None[types.Order]()
	}

	latest, ok := indicator.Last(values)
	if !ok {
		return optional.None[types.Order]()
	}

	position := portfolio.Position(ctx.Bar.Symbol)

	switch s.state(latest) {
	case types.SignalStateLong:
		if position.IsSome() {
			return optional.None[types.Order]()
		}

		quantity := utils.CalculateMaxQuantity(portfolio.Cash(), ctx.Bar.Close, s.commission)
		if quantity <= 0 {
			return optional.None[types.Order]()
		}

		order, err := types.NewMarketOrder(ctx.Bar.Symbol, types.PurchaseTypeBuy, quantity, ctx.Bar.Time)
		if err != nil {
			return skipRejected(s.log, s.Name(), ctx.Bar, err)
		}

		return optional.Some(order)
	case types.SignalStateShort:
		if position.IsNone() || !position.Unwrap().IsLong() {
			return optional.None[types.Order]()
		}

		order, err := types.NewMarketOrder(ctx.Bar.Symbol, types.PurchaseTypeSell, position.Unwrap().Quantity, ctx.Bar.Time)
		if err != nil {
			return skipRejected(s.log, s.Name(), ctx.Bar, err)
		}

		return optional.Some(order)
	default:
		return optional.None[types.Order]()
	}
}

// GenerateSignal emits 0 between the two levels and while the index warms up.
func (s *RSI) GenerateSignal(table types.BarTable) ([]float64, error) {
	signals := make([]float64, table.Len())
	if table.Len() <= s.config.Period {
		return signals, nil
	}

	values, err := indicator.RSI(table.Closes(), s.config.Period)
	if err != nil {
		return nil, err
	}

	for i, value := range values {
		signals[i] = float64(s.state(value))
	}

	return signals, nil
}
