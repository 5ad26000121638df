package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	columnTime   = "time"
	columnSymbol = "symbol"
)

type DuckDBDataSource struct {
	db          *sql.DB
	logger      *logger.Logger
	sq          squirrel.StatementBuilderType
	fileColumns []string
	initialized bool
}

// NewDataSource creates a new DuckDB data source with the specified database path.
// An empty path opens an in-memory database.
// This is distinct from Initialize() which points the data source at a bar file.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	_, err = db.Exec(`SET threads=4;`)
	if err != nil {
		return nil, fmt.Errorf("failed to set DuckDB options: %w", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return fmt.Errorf("failed to drop existing view: %w", err)
	}

	reader := "read_parquet"
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		reader = "read_csv_auto"
	}

	// squirrel has no CREATE VIEW support
	query := fmt.Sprintf(`CREATE VIEW market_data AS SELECT * FROM %s('%s');`,
		reader, strings.ReplaceAll(path, "'", "''"))

	if _, err = d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load bars from %s", path)
	}

	columns, err := d.describe()
	if err != nil {
		return err
	}

	if !slices.Contains(columns, columnTime) || !slices.Contains(columns, string(types.ColumnClose)) {
		return errors.Newf(errors.ErrCodeMissingColumn, "bar file must provide time and close columns, got %v", columns)
	}

	d.fileColumns = columns
	d.initialized = true

	return nil
}

func (d *DuckDBDataSource) describe() ([]string, error) {
	rows, err := d.db.Query(`SELECT column_name FROM (DESCRIBE market_data)`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to describe bar file", err)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}

		columns = append(columns, strings.ToLower(name))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

// Columns implements DataSource.
func (d *DuckDBDataSource) Columns() []types.Column {
	var columns []types.Column

	for _, column := range types.AllColumns {
		if slices.Contains(d.fileColumns, string(column)) {
			columns = append(columns, column)
		}
	}

	return columns
}

func (d *DuckDBDataSource) hasColumn(name string) bool {
	return slices.Contains(d.fileColumns, name)
}

// priceExpr returns the expression for an OHLCV column. Missing prices fall back to close
// and a missing volume reads as 0; Columns() still reports them as absent.
func (d *DuckDBDataSource) priceExpr(column types.Column) string {
	if d.hasColumn(string(column)) {
		return fmt.Sprintf("CAST(%s AS DOUBLE)", column)
	}

	if column == types.ColumnVolume {
		return "CAST(0 AS DOUBLE)"
	}

	return "CAST(close AS DOUBLE)"
}

func (d *DuckDBDataSource) symbolExpr() string {
	if d.hasColumn(columnSymbol) {
		return "CAST(symbol AS VARCHAR)"
	}

	return "''"
}

func (d *DuckDBDataSource) where(opts ReadOptions) squirrel.And {
	conditions := squirrel.And{}

	if opts.Symbol.IsSome() && d.hasColumn(columnSymbol) {
		conditions = append(conditions, squirrel.Eq{columnSymbol: opts.Symbol.Unwrap()})
	}

	if opts.Start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{columnTime: opts.Start.Unwrap()})
	}

	if opts.End.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{columnTime: opts.End.Unwrap()})
	}

	return conditions
}

// buildReadQuery constructs the bar query. With an interval, bars are aggregated into
// time buckets: first open, max high, min low, last close, summed volume.
func (d *DuckDBDataSource) buildReadQuery(opts ReadOptions) (string, []any, error) {
	var builder squirrel.SelectBuilder

	if opts.Interval.IsNone() {
		builder = d.sq.
			Select(
				"CAST(time AS TIMESTAMP) AS time",
				d.symbolExpr()+" AS symbol",
				d.priceExpr(types.ColumnOpen)+" AS open",
				d.priceExpr(types.ColumnHigh)+" AS high",
				d.priceExpr(types.ColumnLow)+" AS low",
				d.priceExpr(types.ColumnClose)+" AS close",
				d.priceExpr(types.ColumnVolume)+" AS volume",
			).
			From("market_data").
			Where(d.where(opts)).
			OrderBy("time ASC")
	} else {
		minutes, err := getIntervalMinutes(opts.Interval.Unwrap())
		if err != nil {
			return "", nil, err
		}

		bucket := fmt.Sprintf("time_bucket(INTERVAL '%d minutes', CAST(time AS TIMESTAMP))", minutes)
		builder = d.sq.
			Select(
				bucket+" AS bucket_time",
				d.symbolExpr()+" AS bucket_symbol",
				fmt.Sprintf("arg_min(%s, time) AS open", d.priceExpr(types.ColumnOpen)),
				fmt.Sprintf("max(%s) AS high", d.priceExpr(types.ColumnHigh)),
				fmt.Sprintf("min(%s) AS low", d.priceExpr(types.ColumnLow)),
				fmt.Sprintf("arg_max(%s, time) AS close", d.priceExpr(types.ColumnClose)),
				fmt.Sprintf("sum(%s) AS volume", d.priceExpr(types.ColumnVolume)),
			).
			From("market_data").
			Where(d.where(opts)).
			GroupBy("bucket_time", "bucket_symbol").
			OrderBy("bucket_time ASC")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build query: %w", err)
	}

	return query, args, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(ctx context.Context, opts ReadOptions) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		if !d.initialized {
			yield(types.Bar{}, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized"))

			return
		}

		query, args, err := d.buildReadQuery(opts)
		if err != nil {
			yield(types.Bar{}, err)

			return
		}

		d.logger.Debug("Reading bars from DuckDB", zap.String("query", query))

		rows, err := d.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var bar types.Bar

			err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
			if err != nil {
				yield(types.Bar{}, fmt.Errorf("failed to scan row: %w", err))

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, fmt.Errorf("error iterating rows: %w", err))
		}
	}
}

// ReadTable implements DataSource. The rows must belong to a single symbol.
func (d *DuckDBDataSource) ReadTable(ctx context.Context, opts ReadOptions) (types.BarTable, error) {
	var (
		bars   []types.Bar
		symbol string
	)

	for bar, err := range d.ReadAll(ctx, opts) {
		if err != nil {
			return types.BarTable{}, err
		}

		if len(bars) == 0 {
			symbol = bar.Symbol
		} else if bar.Symbol != symbol {
			return types.BarTable{}, errors.Newf(errors.ErrCodeInvalidParameter,
				"bar file holds more than one symbol (%s, %s): set a symbol filter", symbol, bar.Symbol)
		}

		bars = append(bars, bar)
	}

	if opts.Symbol.IsSome() && symbol == "" {
		symbol = opts.Symbol.Unwrap()
	}

	table, err := types.NewBarTable(symbol, d.Columns(), bars)
	if err != nil {
		return types.BarTable{}, err
	}

	d.logger.Debug("Read bar table",
		zap.String("symbol", symbol),
		zap.Int("bars", table.Len()),
		zap.Any("columns", table.Columns()))

	return table, nil
}

// Count implements DataSource. The interval option is ignored; raw rows are counted.
func (d *DuckDBDataSource) Count(ctx context.Context, opts ReadOptions) (int, error) {
	if !d.initialized {
		return 0, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	query, args, err := d.sq.
		Select("COUNT(*)").
		From("market_data").
		Where(d.where(opts)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// GetAllSymbols implements DataSource.
func (d *DuckDBDataSource) GetAllSymbols(ctx context.Context) ([]string, error) {
	if !d.initialized {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	if !d.hasColumn(columnSymbol) {
		return nil, nil
	}

	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT CAST(symbol AS VARCHAR) FROM market_data ORDER BY 1")
	if err != nil {
		return nil, fmt.Errorf("failed to get symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

var _ DataSource = (*DuckDBDataSource)(nil)
