package types

import (
	"slices"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Column names a field of the bar table.
type Column string

const (
	ColumnOpen   Column = "open"
	ColumnHigh   Column = "high"
	ColumnLow    Column = "low"
	ColumnClose  Column = "close"
	ColumnVolume Column = "volume"
)

// AllColumns lists every OHLCV column in canonical order.
var AllColumns = []Column{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}

// Bar is one OHLCV record for a fixed interval.
type Bar struct {
	Time   time.Time `csv:"time" json:"time" yaml:"time"`
	Symbol string    `csv:"symbol" json:"symbol" yaml:"symbol"`
	Open   float64   `csv:"open" json:"open" yaml:"open"`
	High   float64   `csv:"high" json:"high" yaml:"high"`
	Low    float64   `csv:"low" json:"low" yaml:"low"`
	Close  float64   `csv:"close" json:"close" yaml:"close"`
	Volume float64   `csv:"volume" json:"volume" yaml:"volume"`
}

// BarTable is a time-ordered table of bars together with the set of columns
// the source actually provided. Go structs always carry every field, so the
// column set is what tells a zero volume apart from a missing volume column.
type BarTable struct {
	Symbol  string
	Bars    []Bar
	columns []Column
}

// NewBarTable creates a table over bars with the given column set.
// Bars must be strictly increasing in time.
func NewBarTable(symbol string, columns []Column, bars []Bar) (BarTable, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return BarTable{}, errors.Newf(errors.ErrCodeUnorderedBars,
				"bars must be strictly increasing in time: index %d (%s) does not follow %s",
				i, bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return BarTable{
		Symbol:  symbol,
		Bars:    bars,
		columns: slices.Clone(columns),
	}, nil
}

// NewOHLCVTable creates a table carrying all five OHLCV columns.
func NewOHLCVTable(symbol string, bars []Bar) (BarTable, error) {
	return NewBarTable(symbol, AllColumns, bars)
}

// Len returns the number of bars.
func (t BarTable) Len() int {
	return len(t.Bars)
}

// Columns returns a copy of the column set.
func (t BarTable) Columns() []Column {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the column was provided by the source.
func (t BarTable) HasColumn(column Column) bool {
	return slices.Contains(t.columns, column)
}

// Validate returns ErrCodeMissingColumn when any of the required columns is absent.
func (t BarTable) Validate(required ...Column) error {
	var missing []Column

	for _, column := range required {
		if !t.HasColumn(column) {
			missing = append(missing, column)
		}
	}

	if len(missing) > 0 {
		return errors.Newf(errors.ErrCodeMissingColumn, "missing required columns: %v", missing)
	}

	return nil
}

// Slice returns bars [from, to) as a new table sharing the column set.
func (t BarTable) Slice(from, to int) BarTable {
	return BarTable{
		Symbol:  t.Symbol,
		Bars:    t.Bars[from:to:to],
		columns: t.columns,
	}
}

// Closes returns the close column.
func (t BarTable) Closes() []float64 {
	out := make([]float64, len(t.Bars))
	for i, bar := range t.Bars {
		out[i] = bar.Close
	}

	return out
}

// Volumes returns the volume column.
func (t BarTable) Volumes() []float64 {
	out := make([]float64, len(t.Bars))
	for i, bar := range t.Bars {
		out[i] = bar.Volume
	}

	return out
}

// Times returns the bar timestamps.
func (t BarTable) Times() []time.Time {
	out := make([]time.Time, len(t.Bars))
	for i, bar := range t.Bars {
		out[i] = bar.Time
	}

	return out
}
