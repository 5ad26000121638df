package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ZeroSignalPolicy decides what a 0 in a vectorized signal series means.
type ZeroSignalPolicy string

const (
	// ZeroSignalPolicyHold keeps the previous non-zero state.
	ZeroSignalPolicyHold ZeroSignalPolicy = "hold"
	// ZeroSignalPolicyFlat closes the position.
	ZeroSignalPolicyFlat ZeroSignalPolicy = "flat"
)

var AllZeroSignalPolicies = []any{ZeroSignalPolicyHold, ZeroSignalPolicyFlat}

var allIntervals = []any{
	datasource.Interval1m, datasource.Interval5m, datasource.Interval15m, datasource.Interval30m,
	datasource.Interval1h, datasource.Interval4h, datasource.Interval6h, datasource.Interval8h,
	datasource.Interval12h, datasource.Interval1d, datasource.Interval1w,
}

const (
	DefaultInitialCapital  = 10_000.0
	DefaultTransactionCost = 0.001
	DefaultBarsPerYear     = 365
)

type BacktestEngineV1Config struct {
	InitialCapital  float64                    `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in quote currency,minimum=0"`
	TransactionCost float64                    `yaml:"transaction_cost" json:"transaction_cost" validate:"gte=0" jsonschema:"title=Transaction Cost,description=Cost rate charged on traded value,minimum=0"`
	Broker          costs.Broker               `yaml:"broker" json:"broker" validate:"omitempty,oneof=percentage interactive_broker zero_commission" jsonschema:"title=Broker,description=The broker to use for commission calculations in event-driven runs"`
	Slippage        costs.SlippageConfig       `yaml:"slippage" json:"slippage" jsonschema:"title=Slippage,description=Slippage model and its parameters"`
	FundingRate     float64                    `yaml:"funding_rate" json:"funding_rate" jsonschema:"title=Funding Rate,description=Annualized funding rate; negative values pay the holder"`
	BorrowRate      float64                    `yaml:"borrow_rate" json:"borrow_rate" validate:"gte=0" jsonschema:"title=Borrow Rate,description=Annualized borrow rate charged on shorts,minimum=0"`
	FundingRates    types.TimeSeries           `yaml:"funding_rates" json:"funding_rates,omitempty" jsonschema:"title=Funding Rates,description=Annualized funding rate per bar timestamp; overrides funding_rate"`
	BorrowRates     types.TimeSeries           `yaml:"borrow_rates" json:"borrow_rates,omitempty" jsonschema:"title=Borrow Rates,description=Annualized borrow rate per bar timestamp; overrides borrow_rate"`
	BarsPerYear     int                        `yaml:"bars_per_year" json:"bars_per_year" validate:"gt=0" jsonschema:"title=Bars Per Year,description=Bars in one year; used to de-annualize rates and annualize ratios,minimum=1"`
	ZeroSignal      ZeroSignalPolicy           `yaml:"zero_signal_policy" json:"zero_signal_policy" validate:"oneof=hold flat" jsonschema:"title=Zero Signal Policy,description=What a 0 signal means in vectorized runs"`
	Symbol          string                     `yaml:"symbol" json:"symbol,omitempty" jsonschema:"title=Symbol,description=Symbol to read from the data file"`
	Interval        datasource.Interval        `yaml:"interval" json:"interval,omitempty" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 6h 8h 12h 1d 1w" jsonschema:"title=Interval,description=Resample bars to this interval when reading"`
	StartTime       optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime         optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	Version         string                     `yaml:"version" json:"version,omitempty" jsonschema:"title=Version,description=Engine version the config was written for"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
// Keys that are absent keep the values from EmptyConfig.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		InitialCapital  float64              `yaml:"initial_capital"`
		TransactionCost float64              `yaml:"transaction_cost"`
		Broker          costs.Broker         `yaml:"broker"`
		Slippage        costs.SlippageConfig `yaml:"slippage"`
		FundingRate     float64              `yaml:"funding_rate"`
		BorrowRate      float64              `yaml:"borrow_rate"`
		FundingRates    types.TimeSeries     `yaml:"funding_rates"`
		BorrowRates     types.TimeSeries     `yaml:"borrow_rates"`
		BarsPerYear     *int                 `yaml:"bars_per_year"`
		ZeroSignal      ZeroSignalPolicy     `yaml:"zero_signal_policy"`
		Symbol          string               `yaml:"symbol"`
		Interval        datasource.Interval  `yaml:"interval"`
		StartTime       *time.Time           `yaml:"start_time"`
		EndTime         *time.Time           `yaml:"end_time"`
		Version         string               `yaml:"version"`
	}

	defaults := EmptyConfig()
	config := Config{
		InitialCapital:  defaults.InitialCapital,
		TransactionCost: defaults.TransactionCost,
		Broker:          defaults.Broker,
		Slippage:        defaults.Slippage,
		ZeroSignal:      defaults.ZeroSignal,
	}

	if err := value.Decode(&config); err != nil {
		return err
	}

	// without an explicit bars_per_year the interval decides, then the default
	barsPerYear := defaults.BarsPerYear
	if config.BarsPerYear != nil {
		barsPerYear = *config.BarsPerYear
	} else if config.Interval != "" {
		derived, err := datasource.BarsPerYear(config.Interval)
		if err != nil {
			return err
		}

		barsPerYear = derived
	}

	*c = BacktestEngineV1Config{
		InitialCapital:  config.InitialCapital,
		TransactionCost: config.TransactionCost,
		Broker:          config.Broker,
		Slippage:        config.Slippage,
		FundingRate:     config.FundingRate,
		BorrowRate:      config.BorrowRate,
		FundingRates:    config.FundingRates,
		BorrowRates:     config.BorrowRates,
		BarsPerYear:     barsPerYear,
		ZeroSignal:      config.ZeroSignal,
		Symbol:          config.Symbol,
		Interval:        config.Interval,
		StartTime:       optional.None[time.Time](),
		EndTime:         optional.None[time.Time](),
		Version:         config.Version,
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// ParseConfig decodes a YAML config and validates it.
func ParseConfig(content []byte) (BacktestEngineV1Config, error) {
	var config BacktestEngineV1Config
	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate checks field ranges, the time window and version compatibility.
func (c *BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.StartTime.Unwrap().Before(c.EndTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "start_time must be before end_time")
	}

	if _, err := costs.NewSlippageModel(c.Slippage); err != nil {
		return err
	}

	return version.CheckConfigCompatibility(version.GetVersion(), c.Version)
}

// SlippageModel builds the configured slippage model.
func (c *BacktestEngineV1Config) SlippageModel() (costs.SlippageModel, error) {
	return costs.NewSlippageModel(c.Slippage)
}

// CommissionFee returns the broker fee model. The percentage broker charges TransactionCost.
func (c *BacktestEngineV1Config) CommissionFee() costs.CommissionFee {
	return costs.GetCommissionFeeHandler(c.Broker, c.TransactionCost)
}

// ReadOptions narrows a data source read to the configured symbol, interval and window.
func (c *BacktestEngineV1Config) ReadOptions() datasource.ReadOptions {
	opts := datasource.ReadOptions{
		Start: c.StartTime,
		End:   c.EndTime,
	}

	if c.Symbol != "" {
		opts.Symbol = optional.Some(c.Symbol)
	}

	if c.Interval != "" {
		opts.Interval = optional.Some(c.Interval)
	}

	return opts
}

// perBarRates resolves funding and borrow rates for every bar of table.
func (c *BacktestEngineV1Config) perBarRates(table types.BarTable) ([]float64, []float64, error) {
	times := table.Times()

	fundingSeries, err := costs.AlignRateSeries(c.FundingRates, times)
	if err != nil {
		return nil, nil, err
	}

	borrowSeries, err := costs.AlignRateSeries(c.BorrowRates, times)
	if err != nil {
		return nil, nil, err
	}

	funding, err := costs.ResolvePerBarRates(c.FundingRate, fundingSeries, table.Len(), c.BarsPerYear)
	if err != nil {
		return nil, nil, err
	}

	borrow, err := costs.ResolvePerBarRates(c.BorrowRate, borrowSeries, table.Len(), c.BarsPerYear)
	if err != nil {
		return nil, nil, err
	}

	return funding, borrow, nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			name := t.String()

			switch {
			case name == "optional.Option[time.Time]":
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case strings.HasSuffix(name, "costs.Broker"):
				return &jsonschema.Schema{
					Type: "string",
					Enum: costs.AllBrokers,
				}
			case strings.HasSuffix(name, "costs.SlippageModelType"):
				return &jsonschema.Schema{
					Type: "string",
					Enum: costs.AllSlippageModels,
				}
			case strings.HasSuffix(name, "ZeroSignalPolicy"):
				return &jsonschema.Schema{
					Type: "string",
					Enum: AllZeroSignalPolicies,
				}
			case strings.HasSuffix(name, "datasource.Interval"):
				return &jsonschema.Schema{
					Type: "string",
					Enum: allIntervals,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a cost-free config for tests.
func TestConfig(initialCapital float64) BacktestEngineV1Config {
	config := EmptyConfig()
	config.InitialCapital = initialCapital
	config.TransactionCost = 0
	config.Broker = costs.BrokerZero

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:  DefaultInitialCapital,
		TransactionCost: DefaultTransactionCost,
		Broker:          costs.BrokerPercentage,
		Slippage:        costs.SlippageConfig{Model: costs.SlippageModelNone},
		BarsPerYear:     DefaultBarsPerYear,
		ZeroSignal:      ZeroSignalPolicyHold,
		StartTime:       optional.None[time.Time](),
		EndTime:         optional.None[time.Time](),
	}
}
