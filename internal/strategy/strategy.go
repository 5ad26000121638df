// Package strategy holds the reference strategies and the registry the CLI picks them
// from. A strategy may implement engine.EventStrategy, engine.SignalProvider or both.
package strategy

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Strategy is anything the registry can build. Engines need it to also implement
// engine.EventStrategy or engine.SignalProvider.
type Strategy interface {
	Name() string
}

// Environment carries what a strategy needs from the run configuration.
type Environment struct {
	// Commission sizes orders so that value plus fee fits in cash.
	Commission costs.CommissionFee
	// Logger receives the orders a strategy had to drop. Nil discards them.
	Logger *logger.Logger
}

// Factory builds a fresh strategy from its YAML config. An empty config keeps defaults.
type Factory func(config string, env Environment) (Strategy, error)

// AsEventStrategy returns s as an event strategy or a coded error naming what it lacks.
func AsEventStrategy(s Strategy) (engine.EventStrategy, error) {
	event, ok := s.(engine.EventStrategy)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "strategy %s does not support event-driven runs", s.Name())
	}

	return event, nil
}

// AsSignalProvider returns s as a signal provider or a coded error naming what it lacks.
func AsSignalProvider(s Strategy) (engine.SignalProvider, error) {
	provider, ok := s.(engine.SignalProvider)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "strategy %s does not support vectorized runs", s.Name())
	}

	return provider, nil
}

// decodeConfig unmarshals config over defaults and validates the result.
func decodeConfig[T any](name, config string, defaults T) (T, error) {
	out := defaults

	if strings.TrimSpace(config) != "" {
		if err := yaml.Unmarshal([]byte(config), &out); err != nil {
			return out, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to parse %s config", name)
		}
	}

	if err := validator.New().Struct(out); err != nil {
		return out, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid %s config", name)
	}

	return out, nil
}

func commissionOrZero(env Environment) costs.CommissionFee {
	if env.Commission == nil {
		return costs.NewZeroCommissionFee()
	}

	return env.Commission
}

func loggerOrNop(env Environment) *logger.Logger {
	if env.Logger == nil {
		return logger.NewNopLogger()
	}

	return env.Logger
}

// skipRejected logs an order the order constructor refused. The strategy then sits out
// the bar; a single bad order never fails the run.
func skipRejected(log *logger.Logger, strategy string, bar types.Bar, err error) optional.Option[types.Order] {
	log.Warn("Order rejected, skipping bar",
		zap.String("strategy", strategy),
		zap.String("symbol", bar.Symbol),
		zap.Time("time", bar.Time),
		zap.Error(err),
	)

	return optional.None[types.Order]()
}
