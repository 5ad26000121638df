package datasource

import (
	"context"
	"iter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// ReadOptions narrows a read. All fields are optional.
type ReadOptions struct {
	Symbol   optional.Option[string]
	Start    optional.Option[time.Time]
	End      optional.Option[time.Time]
	Interval optional.Option[Interval]
}

// DataSource reads historical bars. Acquiring and storing the data is someone else's job.
type DataSource interface {
	// Initialize loads the bar file at path (parquet or csv).
	Initialize(path string) error
	// Columns returns the OHLCV columns the loaded file provides.
	Columns() []types.Column
	// ReadAll streams bars in time order.
	ReadAll(ctx context.Context, opts ReadOptions) iter.Seq2[types.Bar, error]
	// ReadTable reads all matching bars into a validated, time-ordered table.
	ReadTable(ctx context.Context, opts ReadOptions) (types.BarTable, error)
	// Count returns the number of matching rows.
	Count(ctx context.Context, opts ReadOptions) (int, error)
	// GetAllSymbols returns every distinct symbol.
	GetAllSymbols(ctx context.Context) ([]string, error)
	// Close closes the data source and releases any resources
	Close() error
}
