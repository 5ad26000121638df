package engine

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// OnRunStartCallback runs before the first bar. A returned error aborts the run.
type OnRunStartCallback func(runID string, engineType EngineType, totalDataPoints int) error

// OnRunEndCallback runs once after every run; err is nil on success.
type OnRunEndCallback func(runID string, err error)

// OnProcessDataCallback reports progress after each bar. A returned error aborts the run.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks hooks into a run. Nil fields are skipped.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
}

type EngineType string

const (
	EngineTypeEvent      EngineType = "event"
	EngineTypeVectorized EngineType = "vectorized"
)

// BarContext is what an event strategy sees on each bar: the current bar and every
// bar up to and including it. History never contains future bars.
type BarContext struct {
	Index   int
	Bar     types.Bar
	History types.BarTable
}

// PortfolioView is the read-only portfolio state handed to strategies.
type PortfolioView interface {
	Cash() float64
	TotalEquity() float64
	InitialCapital() float64
	Position(symbol string) optional.Option[types.Position]
	Positions() []types.Position
	NetPosition() float64
}

// EventStrategy decides, bar by bar, whether to submit an order.
type EventStrategy interface {
	// Name returns the strategy name used in logs and results.
	Name() string
	// OnBar returns an order to submit on this bar, or None to do nothing.
	OnBar(ctx BarContext, portfolio PortfolioView) optional.Option[types.Order]
}

// SignalProvider produces one position state per bar for the vectorized engine.
// A signal at bar i is acted on at bar i+1.
type SignalProvider interface {
	Name() string
	GenerateSignal(table types.BarTable) ([]float64, error)
}

// EventEngine runs one bar-by-bar backtest over a table.
type EventEngine interface {
	Run(ctx context.Context, table types.BarTable, strategy EventStrategy, callbacks LifecycleCallbacks) (*types.BacktestResult, error)
}

// VectorizedEngine runs one backtest from a precomputed signal series.
type VectorizedEngine interface {
	Run(ctx context.Context, table types.BarTable, signals []float64, callbacks LifecycleCallbacks) (*types.BacktestResult, error)
	RunProvider(ctx context.Context, table types.BarTable, provider SignalProvider, callbacks LifecycleCallbacks) (*types.BacktestResult, error)
}
