package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
)

const BuyAndHoldName = "buy_and_hold"

type BuyAndHoldConfig struct {
	Fraction float64 `yaml:"fraction" json:"fraction" validate:"gt=0,lte=1" jsonschema:"title=Fraction,description=Share of cash spent on the first bar,minimum=0,maximum=1,default=1"`
}

// BuyAndHold buys on the first bar and never sells.
type BuyAndHold struct {
	config     BuyAndHoldConfig
	commission costs.CommissionFee
	log        *logger.Logger
	entered    bool
}

var (
	_ engine.EventStrategy  = (*BuyAndHold)(nil)
	_ engine.SignalProvider = (*BuyAndHold)(nil)
)

func NewBuyAndHold(config BuyAndHoldConfig, env Environment) *BuyAndHold {
	return &BuyAndHold{
		config:     config,
		commission: commissionOrZero(env),
		log:        loggerOrNop(env),
	}
}

func buyAndHoldRegistration() Registration {
	defaults := BuyAndHoldConfig{Fraction: 1}

	return Registration{
		Name:        BuyAndHoldName,
		Description: "Buys with a fixed share of cash on the first bar and holds to the end",
		Config:      defaults,
		New: func(config string, env Environment) (Strategy, error) {
			parsed, err := decodeConfig(BuyAndHoldName, config, defaults)
			if err != nil {
				return nil, err
			}

			return NewBuyAndHold(parsed, env), nil
		},
	}
}

func (s *BuyAndHold) Name() string {
	return BuyAndHoldName
}

func (s *BuyAndHold) OnBar(ctx engine.BarContext, portfolio engine.PortfolioView) optional.Option[types.Order] {
	if s.entered {
		return optional.None[types.Order]()
	}

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

// GenerateSignal is long on every bar; the vectorized engine enters on the second bar.
func (s *BuyAndHold) GenerateSignal(table types.BarTable) ([]float64, error) {
	signals := make([]float64, table.Len())
	for i := range signals {
		signals[i] = float64(types.SignalStateLong)
	}

	return signals, nil
}
