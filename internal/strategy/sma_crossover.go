package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const SMACrossoverName = "sma_crossover"

type SMACrossoverConfig struct {
	FastPeriod int `yaml:"fast_period" json:"fast_period" validate:"gt=0,ltfield=SlowPeriod" jsonschema:"title=Fast Period,description=The period for the fast moving average,minimum=1,default=10"`
	SlowPeriod int `yaml:"slow_period" json:"slow_period" validate:"gt=0" jsonschema:"title=Slow Period,description=The period for the slow moving average,minimum=1,default=30"`
}

// SMACrossover is long while the fast average is above the slow one and short while it
// is below.
type SMACrossover struct {
	config SMACrossoverConfig
}

var _ engine.SignalProvider = (*SMACrossover)(nil)

func NewSMACrossover(config SMACrossoverConfig) *SMACrossover {
	return &SMACrossover{config: config}
}

func smaCrossoverRegistration() Registration {
	defaults := SMACrossoverConfig{FastPeriod: 10, SlowPeriod: 30}

	return Registration{
		Name:        SMACrossoverName,
		Description: "Long when the fast simple moving average is above the slow one, short when below",
		Config:      defaults,
		New: func(config string, _ Environment) (Strategy, error) {
			parsed, err := decodeConfig(SMACrossoverName, config, defaults)
			if err != nil {
				return nil, err
			}

			return NewSMACrossover(parsed), nil
		},
	}
}

func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

// GenerateSignal emits 0 while an average is still warming up. A table shorter than the
// slow period gets no signal at all.
func (s *SMACrossover) GenerateSignal(table types.BarTable) ([]float64, error) {
	signals := make([]float64, table.Len())
	if table.Len() < s.config.SlowPeriod {
		return signals, nil
	}

	closes := table.Closes()

	fast, err := indicator.SMA(closes, s.config.FastPeriod)
	if err != nil {
		return nil, err
	}

	slow, err := indicator.SMA(closes, s.config.SlowPeriod)
	if err != nil {
		return nil, err
	}

	for i := range signals {
		switch {
		case fast[i] > slow[i]:
			signals[i] = float64(types.SignalStateLong)
		case fast[i] < slow[i]:
			signals[i] = float64(types.SignalStateShort)
		default:
			// equal or NaN
			signals[i] = float64(types.SignalStateNone)
		}
	}

	return signals, nil
}
