package costs

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SlippageModel estimates execution slippage in quote currency. Outputs are never negative.
type SlippageModel interface {
	// Calculate returns the slippage cost of each bar given absolute trade sizes in units,
	// market volumes and prices. The three inputs are aligned by index.
	Calculate(sizes, volumes, prices []float64) []float64
	// CalculateSingle returns the slippage cost of one order.
	CalculateSingle(size, volume, price float64) float64
}

type SlippageModelType string

const (
	// SlippageModelNone charges nothing. An empty model name means the same.
	SlippageModelNone           SlippageModelType = "none"
	SlippageModelFixed          SlippageModelType = "fixed"
	SlippageModelVolumeWeighted SlippageModelType = "volume_weighted"
	SlippageModelVolatility     SlippageModelType = "volatility"
)

var AllSlippageModels = []any{
	SlippageModelNone,
	SlippageModelFixed,
	SlippageModelVolumeWeighted,
	SlippageModelVolatility,
}

const (
	DefaultSlippagePct        = 0.0005
	DefaultVolatilityPeriod   = 14
	DefaultVolatilityMultiple = 0.1
)

// WindowedSlippageModel is a SlippageModel whose single-order cost depends on recent closes.
// The execution handler keeps the last Window() closes and prices orders through
// CalculateWindow, so the model itself stays free of state.
type WindowedSlippageModel interface {
	SlippageModel
	Window() int
	CalculateWindow(size, volume, price float64, closes []float64) float64
}

// SlippageConfig selects and parameterizes a slippage model.
type SlippageConfig struct {
	Model      SlippageModelType `yaml:"model" json:"model" jsonschema:"title=Model,description=Slippage model: fixed / volume_weighted / volatility"`
	Pct        float64           `yaml:"pct" json:"pct" validate:"gte=0" jsonschema:"title=Percentage,description=Fixed slippage as a fraction of trade value,minimum=0"`
	BaseRate   float64           `yaml:"base_rate" json:"base_rate" validate:"gte=0" jsonschema:"title=Base Rate,description=Base rate scaled by sqrt(size/volume),minimum=0"`
	Period     int               `yaml:"period" json:"period" validate:"gte=0" jsonschema:"title=Period,description=Rolling window of the volatility model,minimum=0"`
	Multiplier float64           `yaml:"multiplier" json:"multiplier" validate:"gte=0" jsonschema:"title=Multiplier,description=Volatility multiplier,minimum=0"`
}

// NewSlippageModel builds the model named by cfg. Rates are taken as given, so a zero
// rate means no slippage; a zero volatility period takes DefaultVolatilityPeriod.
func NewSlippageModel(cfg SlippageConfig) (SlippageModel, error) {
	switch cfg.Model {
	case SlippageModelNone, "":
		return NewFixedSlippage(0), nil
	case SlippageModelFixed:
		return NewFixedSlippage(cfg.Pct), nil
	case SlippageModelVolumeWeighted:
		return NewVolumeWeightedSlippage(cfg.BaseRate), nil
	case SlippageModelVolatility:
		period := cfg.Period
		if period == 0 {
			period = DefaultVolatilityPeriod
		}

		return NewVolatilitySlippage(period, cfg.Multiplier), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidSlippageModel, "unknown slippage model: %q", cfg.Model)
	}
}
