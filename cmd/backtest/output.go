package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/walkforward"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

func writeResult(w io.Writer, format string, result *types.BacktestResult) error {
	var (
		data []byte
		err  error
	)

	if format == outputJSON {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = result.ToYAML()
	}

	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return writeLine(w, data)
}

func writeSummary(w io.Writer, format string, summary walkforward.Summary) error {
	var (
		data []byte
		err  error
	)

	if format == outputJSON {
		data, err = summary.ToJSON()
	} else {
		data, err = summary.ToYAML()
	}

	if err != nil {
		return err
	}

	return writeLine(w, data)
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err := io.WriteString(w, "\n")

		return err
	}

	return nil
}
