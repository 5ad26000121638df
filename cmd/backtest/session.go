package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/walkforward"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// session is everything a command needs to run backtests: parsed config, loaded bars and
// a way to build fresh strategy instances.
type session struct {
	config         v1.BacktestEngineV1Config
	log            *logger.Logger
	table          types.BarTable
	registry       *strategy.Registry
	strategyName   string
	strategyConfig string
	engineType     engine.EngineType
	output         string
}

func newSession(ctx context.Context, cmd *cli.Command, registry *strategy.Registry) (*session, error) {
	engineType := engine.EngineType(cmd.String("engine"))
	if engineType != engine.EngineTypeEvent && engineType != engine.EngineTypeVectorized {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown engine %q", engineType)
	}

	output := cmd.String("output")
	if output != outputYAML && output != outputJSON {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown output format %q", output)
	}

	if _, err := registry.Get(cmd.String("strategy")); err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	log, err := logger.NewLoggerWithOutput(level, "stderr")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	config, err := loadEngineConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if symbol := cmd.String("symbol"); symbol != "" {
		config.Symbol = symbol
	}

	strategyConfig, err := readOptionalFile(cmd.String("strategy-config"))
	if err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, config, cmd.String("data"), log)
	if err != nil {
		return nil, err
	}

	log.Info("Loaded bars",
		zap.String("symbol", table.Symbol),
		zap.Int("bars", table.Len()),
		zap.String("engine", string(engineType)),
		zap.String("strategy", cmd.String("strategy")),
	)

	return &session{
		config:         config,
		log:            log,
		table:          table,
		registry:       registry,
		strategyName:   cmd.String("strategy"),
		strategyConfig: strategyConfig,
		engineType:     engineType,
		output:         output,
	}, nil
}

func loadEngineConfig(path string) (v1.BacktestEngineV1Config, error) {
	if path == "" {
		return v1.EmptyConfig(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return v1.BacktestEngineV1Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return v1.ParseConfig(content)
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read %s", path)
	}

	return string(content), nil
}

func loadTable(ctx context.Context, config v1.BacktestEngineV1Config, path string, log *logger.Logger) (types.BarTable, error) {
	source, err := datasource.NewDataSource("", log)
	if err != nil {
		return types.BarTable{}, err
	}
	defer source.Close()

	return readTable(ctx, source, path, config.ReadOptions())
}

// readTable loads path into source and reads the selected bars. An empty selection is an
// error so a typo in the symbol or time range does not produce an empty report.
func readTable(ctx context.Context, source datasource.DataSource, path string, opts datasource.ReadOptions) (types.BarTable, error) {
	if err := source.Initialize(path); err != nil {
		return types.BarTable{}, err
	}

	table, err := source.ReadTable(ctx, opts)
	if err != nil {
		return types.BarTable{}, err
	}

	if table.Len() == 0 {
		return types.BarTable{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars selected from %s", path)
	}

	return table, nil
}

func (s *session) newStrategy() (strategy.Strategy, error) {
	return s.registry.New(s.strategyName, s.strategyConfig, strategy.Environment{
		Commission: s.config.CommissionFee(),
		Logger:     s.log,
	})
}

// run backtests the whole table once.
func (s *session) run(ctx context.Context, callbacks engine.LifecycleCallbacks) (*types.BacktestResult, error) {
	built, err := s.newStrategy()
	if err != nil {
		return nil, err
	}

	switch s.engineType {
	case engine.EngineTypeEvent:
		event, err := strategy.AsEventStrategy(built)
		if err != nil {
			return nil, err
		}

		backtester, err := v1.NewEventBacktester(s.config, s.log)
		if err != nil {
			return nil, err
		}

		return backtester.Run(ctx, s.table, event, callbacks)
	default:
		provider, err := strategy.AsSignalProvider(built)
		if err != nil {
			return nil, err
		}

		backtester, err := v1.NewVectorizedBacktester(s.config, s.log)
		if err != nil {
			return nil, err
		}

		return backtester.RunProvider(ctx, s.table, provider, callbacks)
	}
}

// splitRunner builds a walk-forward runner that creates a new strategy for every split.
// The reference strategies carry no fitted state, so the train segment only sizes them.
func (s *session) splitRunner() (walkforward.SplitRunner, error) {
	// fail on an unsupported engine before any split starts
	probe, err := s.newStrategy()
	if err != nil {
		return nil, err
	}

	switch s.engineType {
	case engine.EngineTypeEvent:
		if _, err := strategy.AsEventStrategy(probe); err != nil {
			return nil, err
		}

		backtester, err := v1.NewEventBacktester(s.config, s.log)
		if err != nil {
			return nil, err
		}

		return v1.NewEventRunner(backtester, func(types.BarTable) (engine.EventStrategy, error) {
			built, err := s.newStrategy()
			if err != nil {
				return nil, err
			}

			return strategy.AsEventStrategy(built)
		}), nil
	default:
		if _, err := strategy.AsSignalProvider(probe); err != nil {
			return nil, err
		}

		backtester, err := v1.NewVectorizedBacktester(s.config, s.log)
		if err != nil {
			return nil, err
		}

		return v1.NewVectorizedRunner(backtester, func(types.BarTable) (engine.SignalProvider, error) {
			built, err := s.newStrategy()
			if err != nil {
				return nil, err
			}

			return strategy.AsSignalProvider(built)
		}), nil
	}
}
