package main

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/urfave/cli/v3"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

// sharedFlags are accepted by every command that runs a backtest.
func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to the bar file (`FILE`, parquet or csv)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the engine config YAML. Defaults apply when omitted",
		},
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Usage:   "Name of a registered strategy (see the strategies command)",
			Value:   strategy.BuyAndHoldName,
		},
		&cli.StringFlag{
			Name:  "strategy-config",
			Usage: "Path to the strategy config YAML",
		},
		&cli.StringFlag{
			Name:  "symbol",
			Usage: "Symbol to read; overrides the config file",
		},
		&cli.StringFlag{
			Name:    "engine",
			Aliases: []string{"e"},
			Usage:   fmt.Sprintf("Engine to run (%s or %s)", engine.EngineTypeVectorized, engine.EngineTypeEvent),
			Value:   string(engine.EngineTypeVectorized),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   fmt.Sprintf("Report format (%s or %s)", outputYAML, outputJSON),
			Value:   outputYAML,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log engine internals at debug level",
		},
	}
}
