package walkforward

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"gopkg.in/yaml.v3"
)

// SplitSummary is one split's window and metrics.
type SplitSummary struct {
	Index      int                 `yaml:"index" json:"index"`
	TrainStart time.Time           `yaml:"train_start" json:"train_start"`
	TrainEnd   time.Time           `yaml:"train_end" json:"train_end"`
	TestStart  time.Time           `yaml:"test_start" json:"test_start"`
	TestEnd    time.Time           `yaml:"test_end" json:"test_end"`
	Metrics    map[string]*float64 `yaml:"metrics" json:"metrics"`
}

// Summary is the printable digest of a walk-forward run. Per-bar series are left out;
// NaN and infinite values become null.
type Summary struct {
	Splits           []SplitSummary      `yaml:"splits" json:"splits"`
	AggregateMetrics map[string]*float64 `yaml:"aggregate_metrics" json:"aggregate_metrics"`
	OOSBars          int                 `yaml:"oos_bars" json:"oos_bars"`
	Trades           int                 `yaml:"trades" json:"trades"`
	FinalEquity      *float64            `yaml:"final_equity" json:"final_equity"`
	ReservedBars     int                 `yaml:"reserved_bars" json:"reserved_bars"`
	ReserveStart     *time.Time          `yaml:"reserve_start" json:"reserve_start"`
	MonteCarlo       *MonteCarloResult   `yaml:"monte_carlo,omitempty" json:"monte_carlo,omitempty"`
}

// Summary digests the result. monteCarlo may be nil.
func (r *WalkForwardResult) Summary(monteCarlo *MonteCarloResult) Summary {
	summary := Summary{
		Splits:           make([]SplitSummary, len(r.Splits)),
		AggregateMetrics: types.FiniteMetrics(r.AggregateMetrics),
		OOSBars:          len(r.OOSReturns),
		Trades:           len(r.Trades),
		ReservedBars:     r.ReservedBars,
		MonteCarlo:       monteCarlo,
	}

	for i, split := range r.Splits {
		summary.Splits[i] = SplitSummary{
			Index:      split.Index,
			TrainStart: split.TrainStart,
			TrainEnd:   split.TrainEnd,
			TestStart:  split.TestStart,
			TestEnd:    split.TestEnd,
			Metrics:    types.FiniteMetrics(split.Metrics),
		}
	}

	if len(r.OOSEquityCurve) > 0 {
		if last := r.OOSEquityCurve.Last(); !math.IsNaN(last) && !math.IsInf(last, 0) {
			summary.FinalEquity = &last
		}
	}

	if r.ReserveStart.IsSome() {
		start := r.ReserveStart.Unwrap()
		summary.ReserveStart = &start
	}

	return summary
}

func (s Summary) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal walk-forward summary: %w", err)
	}

	return data, nil
}

func (s Summary) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal walk-forward summary: %w", err)
	}

	return data, nil
}
