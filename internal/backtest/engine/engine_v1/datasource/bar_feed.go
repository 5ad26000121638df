package datasource

import (
	"iter"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// BarFeed iterates a bar table in time order and hands strategies a history that ends at
// the current bar. Strategies never see bars after the one being processed.
type BarFeed struct {
	table types.BarTable
	// filled carries every OHLCV column, derived from close where the source lacked it.
	filled types.BarTable
}

// NewBarFeed validates that the table has close and volume columns.
// Missing open, high or low columns are filled from close, which means STOP and LIMIT
// orders can only trigger on the close.
func NewBarFeed(table types.BarTable) (*BarFeed, error) {
	if err := table.Validate(types.ColumnClose, types.ColumnVolume); err != nil {
		return nil, err
	}

	bars := table.Bars
	hasOpen := table.HasColumn(types.ColumnOpen)
	hasHigh := table.HasColumn(types.ColumnHigh)
	hasLow := table.HasColumn(types.ColumnLow)

	if !hasOpen || !hasHigh || !hasLow {
		bars = make([]types.Bar, len(table.Bars))
		for i, bar := range table.Bars {
			if !hasOpen {
				bar.Open = bar.Close
			}

			if !hasHigh {
				bar.High = bar.Close
			}

			if !hasLow {
				bar.Low = bar.Close
			}

			bars[i] = bar
		}
	}

	filled, err := types.NewOHLCVTable(table.Symbol, bars)
	if err != nil {
		return nil, err
	}

	return &BarFeed{
		table:  table,
		filled: filled,
	}, nil
}

// All yields (index, bar) pairs in order. An empty table yields nothing.
func (f *BarFeed) All() iter.Seq2[int, types.Bar] {
	return func(yield func(int, types.Bar) bool) {
		for i, bar := range f.filled.Bars {
			if !yield(i, bar) {
				return
			}
		}
	}
}

// History returns bars [0..i] as a table. Its bar slice is capped, so appending to it
// never exposes later bars. Callers must treat it as read-only.
func (f *BarFeed) History(i int) types.BarTable {
	return f.filled.Slice(0, i+1)
}

// Len returns the number of bars.
func (f *BarFeed) Len() int {
	return f.filled.Len()
}

// Table returns the underlying table.
func (f *BarFeed) Table() types.BarTable {
	return f.table
}
