package types

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Backtest result metadata keys and values.
const (
	MetadataKeyType          = "type"
	MetadataKeyRunID         = "run_id"
	MetadataKeyEngineVersion = "engine_version"
	MetadataKeySymbol        = "symbol"

	ResultTypeEventDriven = "event_driven"
	ResultTypeVectorized  = "vectorized"
)

// Cost series names.
const (
	CostTransaction = "transaction"
	CostSlippage    = "slippage"
	CostFunding     = "funding"
	CostBorrow      = "borrow"
	CostCommission  = "commission"
)

// Point is one timestamped value.
type Point struct {
	Time  time.Time `yaml:"time" json:"time"`
	Value float64   `yaml:"value" json:"value"`
}

// TimeSeries is a time-indexed sequence of values.
type TimeSeries []Point

// NewTimeSeries zips times and values. Extra entries on either side are dropped.
func NewTimeSeries(times []time.Time, values []float64) TimeSeries {
	n := min(len(times), len(values))

	series := make(TimeSeries, n)
	for i := range n {
		series[i] = Point{Time: times[i], Value: values[i]}
	}

	return series
}

// Values returns the value column.
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}

	return out
}

// Times returns the time column.
func (s TimeSeries) Times() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Time
	}

	return out
}

// Last returns the final value, or 0 for an empty series.
func (s TimeSeries) Last() float64 {
	if len(s) == 0 {
		return 0
	}

	return s[len(s)-1].Value
}

// BacktestResult is the output of one engine run.
type BacktestResult struct {
	EquityCurve TimeSeries            `yaml:"equity_curve" json:"equity_curve"`
	Returns     TimeSeries            `yaml:"returns" json:"returns"`
	Positions   TimeSeries            `yaml:"positions" json:"positions"`
	Trades      []TradeRecord         `yaml:"trades" json:"trades"`
	Metrics     map[string]float64    `yaml:"metrics" json:"metrics"`
	Costs       map[string]TimeSeries `yaml:"costs" json:"costs"`
	Metadata    map[string]string     `yaml:"metadata" json:"metadata"`
}

// FinalEquity returns the last equity value, or 0 when the curve is empty.
func (r *BacktestResult) FinalEquity() float64 {
	return r.EquityCurve.Last()
}

// FrameRow is one bar of the combined result table.
type FrameRow struct {
	Time     time.Time          `yaml:"time" json:"time" csv:"time"`
	Equity   float64            `yaml:"equity" json:"equity" csv:"equity"`
	Return   float64            `yaml:"return" json:"return" csv:"return"`
	Position float64            `yaml:"position" json:"position" csv:"position"`
	Costs    map[string]float64 `yaml:"costs" json:"costs" csv:"-"`
}

// Frame joins equity, returns, positions and cost series by bar index.
func (r *BacktestResult) Frame() []FrameRow {
	rows := make([]FrameRow, len(r.EquityCurve))

	for i, point := range r.EquityCurve {
		row := FrameRow{
			Time:   point.Time,
			Equity: point.Value,
			Costs:  make(map[string]float64, len(r.Costs)),
		}

		if i < len(r.Returns) {
			row.Return = r.Returns[i].Value
		}

		if i < len(r.Positions) {
			row.Position = r.Positions[i].Value
		}

		for name, series := range r.Costs {
			if i < len(series) {
				row.Costs[name] = series[i].Value
			}
		}

		rows[i] = row
	}

	return rows
}

// CostNames returns the cost series names in sorted order.
func (r *BacktestResult) CostNames() []string {
	names := make([]string, 0, len(r.Costs))
	for name := range r.Costs {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

type pointView struct {
	Time  time.Time `yaml:"time" json:"time"`
	Value *float64  `yaml:"value" json:"value"`
}

type tradeView struct {
	Symbol      string       `yaml:"symbol" json:"symbol"`
	Side        PurchaseType `yaml:"side" json:"side"`
	EntryPrice  *float64     `yaml:"entry_price" json:"entry_price"`
	ExitPrice   *float64     `yaml:"exit_price" json:"exit_price"`
	Quantity    *float64     `yaml:"quantity" json:"quantity"`
	EntryTime   time.Time    `yaml:"entry_time" json:"entry_time"`
	ExitTime    time.Time    `yaml:"exit_time" json:"exit_time"`
	PnL         *float64     `yaml:"pnl" json:"pnl"`
	Commission  *float64     `yaml:"commission" json:"commission"`
	Slippage    *float64     `yaml:"slippage" json:"slippage"`
	HoldingBars *int         `yaml:"holding_bars" json:"holding_bars"`
}

type resultView struct {
	EquityCurve []pointView            `yaml:"equity_curve" json:"equity_curve"`
	Returns     []pointView            `yaml:"returns" json:"returns"`
	Positions   []pointView            `yaml:"positions" json:"positions"`
	Trades      []tradeView            `yaml:"trades" json:"trades"`
	Metrics     map[string]*float64    `yaml:"metrics" json:"metrics"`
	Costs       map[string][]pointView `yaml:"costs" json:"costs"`
	Metadata    map[string]string      `yaml:"metadata" json:"metadata"`
}

// finite returns nil for NaN and infinities so they encode as null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}

// FiniteMetrics maps each metric to a pointer that is nil for NaN and infinities.
func FiniteMetrics(metrics map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(metrics))
	for name, value := range metrics {
		out[name] = finite(value)
	}

	return out
}

func seriesView(s TimeSeries) []pointView {
	out := make([]pointView, len(s))
	for i, p := range s {
		out[i] = pointView{Time: p.Time, Value: finite(p.Value)}
	}

	return out
}

func (r *BacktestResult) view() resultView {
	view := resultView{
		EquityCurve: seriesView(r.EquityCurve),
		Returns:     seriesView(r.Returns),
		Positions:   seriesView(r.Positions),
		Trades:      make([]tradeView, len(r.Trades)),
		Metrics:     FiniteMetrics(r.Metrics),
		Costs:       make(map[string][]pointView, len(r.Costs)),
		Metadata:    r.Metadata,
	}

	for i, trade := range r.Trades {
		tv := tradeView{
			Symbol:     trade.Symbol,
			Side:       trade.Side,
			EntryPrice: finite(trade.EntryPrice),
			ExitPrice:  finite(trade.ExitPrice),
			Quantity:   finite(trade.Quantity),
			EntryTime:  trade.EntryTime,
			ExitTime:   trade.ExitTime,
			Commission: finite(trade.Commission),
			Slippage:   finite(trade.Slippage),
		}

		if trade.PnL.IsSome() {
			tv.PnL = finite(trade.PnL.Unwrap())
		}

		if trade.HoldingBars.IsSome() {
			bars := trade.HoldingBars.Unwrap()
			tv.HoldingBars = &bars
		}

		view.Trades[i] = tv
	}

	for name, series := range r.Costs {
		view.Costs[name] = seriesView(series)
	}

	return view
}

// MarshalJSON encodes the result with NaN and infinite values replaced by null.
func (r *BacktestResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

// ToYAML encodes the result as YAML with the same null projection as MarshalJSON.
func (r *BacktestResult) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(r.view())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backtest result: %w", err)
	}

	return data, nil
}
