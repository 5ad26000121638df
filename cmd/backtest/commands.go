package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/walkforward"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func runCommand(registry *strategy.Registry) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Backtest a strategy over the whole bar file",
		Flags: append(sharedFlags(),
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, registry)
			if err != nil {
				return err
			}
			defer s.log.Sync() //nolint:errcheck // stderr sync fails on some terminals

			callbacks := engine.LifecycleCallbacks{}
			if !cmd.Bool("no-progress") {
				callbacks = progressCallbacks(cmd.Root().ErrWriter)
			}

			result, err := s.run(ctx, callbacks)
			if err != nil {
				return fmt.Errorf("backtest failed: %w", err)
			}

			return writeResult(cmd.Root().Writer, s.output, result)
		},
	}
}

func walkForwardCommand(registry *strategy.Registry) *cli.Command {
	return &cli.Command{
		Name:  "walkforward",
		Usage: "Validate a strategy on sliding train/test windows with a held-back out-of-sample tail",
		Flags: append(sharedFlags(),
			&cli.IntFlag{
				Name:     "train",
				Usage:    "Bars in each train window",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "test",
				Usage:    "Bars in each test window",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "step",
				Usage: "Bars between window starts, at least the test window. Defaults to the test window",
			},
			&cli.FloatFlag{
				Name:  "oos-reserve",
				Usage: "Share of the most recent bars held back from every split",
				Value: walkforward.DefaultOOSReservePct,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Splits run at once. Defaults to GOMAXPROCS",
			},
			&cli.IntFlag{
				Name:  "monte-carlo",
				Usage: "Shuffle the out-of-sample trades this many times (0 disables)",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Seed for the Monte-Carlo shuffles. Defaults to the current time",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, registry)
			if err != nil {
				return err
			}
			defer s.log.Sync() //nolint:errcheck // stderr sync fails on some terminals

			validator, err := walkforward.NewValidator(cmd.Float("oos-reserve"), validatorOptions(cmd, s)...)
			if err != nil {
				return err
			}

			runner, err := s.splitRunner()
			if err != nil {
				return err
			}

			train := int(cmd.Int("train"))
			test := int(cmd.Int("test"))

			step := int(cmd.Int("step"))
			if step == 0 {
				step = test
			}

			result, err := validator.Validate(ctx, s.table, runner, train, test, step)
			if err != nil {
				return fmt.Errorf("walk-forward validation failed: %w", err)
			}

			var monteCarlo *walkforward.MonteCarloResult
			if n := int(cmd.Int("monte-carlo")); n > 0 {
				monteCarlo, err = validator.MonteCarlo(ctx, result.Trades, n)
				if err != nil {
					return fmt.Errorf("monte-carlo resampling failed: %w", err)
				}
			}

			return writeSummary(cmd.Root().Writer, s.output, result.Summary(monteCarlo))
		},
	}
}

func validatorOptions(cmd *cli.Command, s *session) []walkforward.Option {
	opts := []walkforward.Option{
		walkforward.WithLogger(s.log),
		walkforward.WithInitialCapital(s.config.InitialCapital),
		walkforward.WithBarsPerYear(s.config.BarsPerYear),
	}

	if cmd.IsSet("concurrency") {
		opts = append(opts, walkforward.WithConcurrency(int(cmd.Int("concurrency"))))
	}

	if cmd.IsSet("seed") {
		opts = append(opts, walkforward.WithSeed(uint64(cmd.Int("seed"))))
	}

	return opts
}

func schemaCommand(registry *strategy.Registry) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the engine config, or of a strategy config with --strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Strategy whose config schema to print",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			var (
				schema string
				err    error
			)

			if name := cmd.String("strategy"); name != "" {
				schema, err = registry.Schema(name)
			} else {
				config := v1.EmptyConfig()
				schema, err = config.GenerateSchemaJSON()
			}

			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.Root().Writer, schema)

			return err
		},
	}
}

func strategiesCommand(registry *strategy.Registry) *cli.Command {
	return &cli.Command{
		Name:  "strategies",
		Usage: "List the registered strategies",
		Action: func(_ context.Context, cmd *cli.Command) error {
			for _, name := range registry.List() {
				registration, err := registry.Get(name)
				if err != nil {
					return err
				}

				if _, err := fmt.Fprintf(cmd.Root().Writer, "%-16s %s\n", name, registration.Description); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

// progressCallbacks drives a progress bar on w from the engine's lifecycle callbacks.
func progressCallbacks(w io.Writer) engine.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onStart := engine.OnRunStartCallback(func(_ string, engineType engine.EngineType, total int) error {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(fmt.Sprintf("Backtesting (%s)", engineType)),
			progressbar.OptionShowCount(),
		)

		return nil
	})

	onProcessData := engine.OnProcessDataCallback(func(current int, _ int) error {
		return bar.Set(current)
	})

	onEnd := engine.OnRunEndCallback(func(_ string, err error) {
		if err == nil {
			_ = bar.Finish()
		}
	})

	return engine.LifecycleCallbacks{
		OnRunStart:    &onStart,
		OnRunEnd:      &onEnd,
		OnProcessData: &onProcessData,
	}
}
