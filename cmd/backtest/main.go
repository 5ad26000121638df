package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/urfave/cli/v3"
)

func newApp(stdout, stderr io.Writer) *cli.Command {
	registry := strategy.NewDefaultRegistry()

	return &cli.Command{
		Name:      "backtest",
		Usage:     "Backtest trading strategies on historical OHLCV bars",
		Version:   version.GetVersion(),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			runCommand(registry),
			walkForwardCommand(registry),
			schemaCommand(registry),
			strategiesCommand(registry),
		},
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
