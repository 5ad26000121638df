package walkforward

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Monte-Carlo result keys.
const (
	KeyTotalReturnCI   = "total_return_95_ci"
	KeyTotalReturnMean = "total_return_mean"
	KeyMaxDrawdownCI   = "max_drawdown_95_ci"
	KeyMaxDrawdownMean = "max_drawdown_mean"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// MonteCarloResult summarizes the distribution of resampled trade sequences. Both maps
// are empty when there was no trade PnL to resample.
type MonteCarloResult struct {
	Simulations         int                 `yaml:"simulations" json:"simulations"`
	ConfidenceIntervals map[string]Interval `yaml:"confidence_intervals" json:"confidence_intervals"`
	Means               map[string]float64  `yaml:"means" json:"means"`
}

// MonteCarlo shuffles the order of the trades' realized PnLs nSimulations times. The
// total PnL of every trial equals the original total; what changes with the order is
// the path, reported as the largest peak-to-trough fall of cumulative PnL. Trials run
// concurrently, each with its own generator seeded from the validator seed and the
// trial number, so a fixed seed reproduces the result.
func (v *Validator) MonteCarlo(ctx context.Context, trades []types.TradeRecord, nSimulations int) (*MonteCarloResult, error) {
	if nSimulations <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "number of simulations must be positive, got %d", nSimulations)
	}

	result := &MonteCarloResult{
		Simulations:         nSimulations,
		ConfidenceIntervals: map[string]Interval{},
		Means:               map[string]float64{},
	}

	pnls := make([]float64, 0, len(trades))
	for _, trade := range trades {
		if trade.PnL.IsSome() && !math.IsNaN(trade.PnL.Unwrap()) {
			pnls = append(pnls, trade.PnL.Unwrap())
		}
	}

	if len(pnls) == 0 {
		return result, nil
	}

	totals := make([]float64, nSimulations)
	drawdowns := make([]float64, nSimulations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for trial := range nSimulations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewPCG(v.seed, uint64(trial)))
			sequence := make([]float64, len(pnls))
			copy(sequence, pnls)
			rng.Shuffle(len(sequence), func(i, j int) {
				sequence[i], sequence[j] = sequence[j], sequence[i]
			})

			totals[trial], drawdowns[trial] = walkPath(sequence)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.ConfidenceIntervals[KeyTotalReturnCI] = confidenceInterval(totals)
	result.Means[KeyTotalReturnMean] = utils.Mean(totals)
	result.ConfidenceIntervals[KeyMaxDrawdownCI] = confidenceInterval(drawdowns)
	result.Means[KeyMaxDrawdownMean] = utils.Mean(drawdowns)

	v.log.Debug("Monte-Carlo resampling finished",
		zap.Int("simulations", nSimulations),
		zap.Int("trades", len(pnls)),
		zap.Float64("total_mean", result.Means[KeyTotalReturnMean]),
	)

	return result, nil
}

// walkPath returns the sum of pnls and the largest fall of their running sum from a
// previous high. The path starts at 0.
func walkPath(pnls []float64) (total, drawdown float64) {
	var peak float64

	for _, pnl := range pnls {
		total += pnl
		peak = math.Max(peak, total)
		drawdown = math.Max(drawdown, peak-total)
	}

	return total, drawdown
}

func confidenceInterval(values []float64) Interval {
	return Interval{
		Lower: utils.Percentile(values, 2.5),
		Upper: utils.Percentile(values, 97.5),
	}
}
