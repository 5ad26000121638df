package engine

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SignalProviderFactory builds a signal provider fitted on train.
type SignalProviderFactory func(train types.BarTable) (engine.SignalProvider, error)

// EventStrategyFactory builds an event strategy fitted on train.
type EventStrategyFactory func(train types.BarTable) (engine.EventStrategy, error)

// VectorizedRunner runs one train/test split on the vectorized engine. The factory is
// called once per split, so no state leaks between splits.
type VectorizedRunner struct {
	backtester *VectorizedBacktester
	factory    SignalProviderFactory
}

func NewVectorizedRunner(backtester *VectorizedBacktester, factory SignalProviderFactory) *VectorizedRunner {
	return &VectorizedRunner{
		backtester: backtester,
		factory:    factory,
	}
}

// Run fits a provider on train and backtests it on test.
func (r *VectorizedRunner) Run(ctx context.Context, train, test types.BarTable) (*types.BacktestResult, error) {
	if r.factory == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "signal provider factory is required")
	}

	provider, err := r.factory(train)
	if err != nil {
		return nil, fmt.Errorf("failed to build signal provider: %w", err)
	}

	return r.backtester.RunProvider(ctx, test, provider, engine.LifecycleCallbacks{})
}

// EventRunner runs one train/test split on the event engine.
type EventRunner struct {
	backtester *EventBacktester
	factory    EventStrategyFactory
}

func NewEventRunner(backtester *EventBacktester, factory EventStrategyFactory) *EventRunner {
	return &EventRunner{
		backtester: backtester,
		factory:    factory,
	}
}

// Run fits a strategy on train and backtests it on test.
func (r *EventRunner) Run(ctx context.Context, train, test types.BarTable) (*types.BacktestResult, error) {
	if r.factory == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "event strategy factory is required")
	}

	strategy, err := r.factory(train)
	if err != nil {
		return nil, fmt.Errorf("failed to build event strategy: %w", err)
	}

	return r.backtester.Run(ctx, test, strategy, engine.LifecycleCallbacks{})
}
