package metrics

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/utils"
)

// Metric names.
const (
	TotalReturn      = "total_return"
	CAGR             = "cagr"
	SharpeRatio      = "sharpe_ratio"
	SortinoRatio     = "sortino_ratio"
	MaxDrawdown      = "max_drawdown"
	CalmarRatio      = "calmar_ratio"
	TotalCosts       = "total_costs"
	WinRate          = "win_rate"
	ProfitFactor     = "profit_factor"
	AvgTradeDuration = "avg_trade_duration"
	NumTrades        = "num_trades"
)

// ProfitFactorCap is reported instead of +Inf when there are profits and no losses.
const ProfitFactorCap = 100.0

// Input is everything Calculate needs. Returns, Equity and Positions are aligned by bar.
type Input struct {
	Returns   []float64
	Equity    []float64
	Positions []float64
	// Trades switches win rate, profit factor and duration to the trade table.
	// None, or an empty table, falls back to bar returns.
	Trades      optional.Option[[]types.TradeRecord]
	Costs       map[string][]float64
	BarsPerYear int
}

// Calculate computes the full metrics map. It never fails: degenerate inputs produce
// the documented zero values.
func Calculate(in Input) map[string]float64 {
	equity := in.Equity
	cagr := compoundAnnualGrowth(equity, in.BarsPerYear)
	drawdown := maxDrawdown(equity)

	trades := []types.TradeRecord{}
	if in.Trades.IsSome() {
		trades = in.Trades.Unwrap()
	}

	return map[string]float64{
		TotalReturn:      totalReturn(equity),
		CAGR:             cagr,
		SharpeRatio:      sharpe(in.Returns, in.BarsPerYear),
		SortinoRatio:     sortino(in.Returns, in.BarsPerYear),
		MaxDrawdown:      drawdown,
		CalmarRatio:      calmar(cagr, drawdown),
		TotalCosts:       totalCosts(in.Costs),
		WinRate:          winRate(in.Returns, trades),
		ProfitFactor:     profitFactor(in.Returns, trades),
		AvgTradeDuration: avgTradeDuration(trades),
		NumTrades:        float64(len(trades)),
	}
}

// totalReturn is 0 when the curve is empty or starts at a non-positive value.
func totalReturn(equity []float64) float64 {
	if len(equity) == 0 || equity[0] <= 0 {
		return 0
	}

	return equity[len(equity)-1]/equity[0] - 1
}

// compoundAnnualGrowth is 0 unless both ends of the curve are positive.
func compoundAnnualGrowth(equity []float64, barsPerYear int) float64 {
	if len(equity) == 0 || barsPerYear <= 0 {
		return 0
	}

	first, last := equity[0], equity[len(equity)-1]
	if first <= 0 || last <= 0 {
		return 0
	}

	years := float64(len(equity)) / float64(barsPerYear)

	return math.Pow(last/first, 1/years) - 1
}

// sharpe is mean / sample std scaled by sqrt(barsPerYear); 0 when std is 0 or undefined.
func sharpe(returns []float64, barsPerYear int) float64 {
	std := utils.SampleStd(returns)
	if len(returns) == 0 || std == 0 || math.IsNaN(std) {
		return 0
	}

	return utils.Mean(returns) / std * math.Sqrt(float64(barsPerYear))
}

// sortino uses the downside deviation sqrt(mean(min(0, r)^2)); 0 without any negative return.
func sortino(returns []float64, barsPerYear int) float64 {
	var (
		hasDownside bool
		sumSquares  float64
	)

	for _, r := range returns {
		if r < 0 {
			hasDownside = true
			sumSquares += r * r
		}
	}

	if !hasDownside {
		return 0
	}

	downside := math.Sqrt(sumSquares / float64(len(returns)))
	if downside == 0 {
		return 0
	}

	return utils.Mean(returns) / downside * math.Sqrt(float64(barsPerYear))
}

// maxDrawdown is the largest fall off the running peak, as a positive fraction.
func maxDrawdown(equity []float64) float64 {
	var (
		peak  = math.Inf(-1)
		worst float64
	)

	for _, value := range equity {
		peak = math.Max(peak, value)
		if peak <= 0 {
			continue
		}

		worst = math.Min(worst, value/peak-1)
	}

	return math.Abs(worst)
}

func calmar(cagr, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}

	return cagr / maxDrawdown
}

// totalCosts sums every cost series, skipping NaN.
func totalCosts(costs map[string][]float64) float64 {
	var total float64

	for _, series := range costs {
		for _, v := range series {
			if !math.IsNaN(v) {
				total += v
			}
		}
	}

	return total
}

func resolvedPnLs(trades []types.TradeRecord) []float64 {
	pnls := make([]float64, 0, len(trades))

	for _, trade := range trades {
		if trade.PnL.IsSome() && !math.IsNaN(trade.PnL.Unwrap()) {
			pnls = append(pnls, trade.PnL.Unwrap())
		}
	}

	return pnls
}

// winRate uses trades with a resolved PnL, or the share of positive non-zero bar returns.
func winRate(returns []float64, trades []types.TradeRecord) float64 {
	values := returns
	if len(trades) > 0 {
		values = resolvedPnLs(trades)
	}

	var wins, active int

	for _, v := range values {
		if v == 0 && len(trades) == 0 {
			continue
		}

		active++

		if v > 0 {
			wins++
		}
	}

	if active == 0 {
		return 0
	}

	return float64(wins) / float64(active)
}

// profitFactor is gross profit / gross loss, ProfitFactorCap when there is profit but no loss.
func profitFactor(returns []float64, trades []types.TradeRecord) float64 {
	values := returns
	if len(trades) > 0 {
		values = resolvedPnLs(trades)
	}

	var profit, loss float64

	for _, v := range values {
		switch {
		case v > 0:
			profit += v
		case v < 0:
			loss -= v
		}
	}

	if loss == 0 {
		if profit > 0 {
			return ProfitFactorCap
		}

		return 0
	}

	return profit / loss
}

// avgTradeDuration is the mean holding period in bars over trades that report one.
func avgTradeDuration(trades []types.TradeRecord) float64 {
	var (
		total float64
		n     int
	)

	for _, trade := range trades {
		if trade.HoldingBars.IsSome() {
			total += float64(trade.HoldingBars.Unwrap())
			n++
		}
	}

	if n == 0 {
		return 0
	}

	return total / float64(n)
}
