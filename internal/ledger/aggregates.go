package ledger

import (
	"context"
	"sort"
	"time"

	"drift/internal/types"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// StrategyPerformance summarizes a strategy's realized round trips over a
// lookback window. The same outcome rows always produce the same summary.
type StrategyPerformance struct {
	Strategy    string
	Trades      int
	Wins        int
	WinRate     float64
	RealizedPnL decimal.Decimal
	AvgReturn   float64
	Sharpe      float64
}

// PortfolioStats summarizes the equity curve from stored snapshots.
type PortfolioStats struct {
	Samples     int
	TotalReturn float64
	Volatility  float64
	Sharpe      float64
	MaxDrawdown float64
}

// StrategyPerformanceSince aggregates realized outcomes per strategy,
// sorted by strategy name for stable output.
func (s *Store) StrategyPerformanceSince(ctx context.Context, since time.Time) ([]StrategyPerformance, error) {
	outcomes, err := s.TradeOutcomesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	byStrategy := make(map[string]*StrategyPerformance)
	returns := make(map[string][]float64)
	for _, o := range outcomes {
		perf, ok := byStrategy[o.Strategy]
		if !ok {
			perf = &StrategyPerformance{Strategy: o.Strategy}
			byStrategy[o.Strategy] = perf
		}
		pnl := mustDecimal(o.RealizedPnL)
		perf.Trades++
		if pnl.IsPositive() {
			perf.Wins++
		}
		perf.RealizedPnL = perf.RealizedPnL.Add(pnl)
		returns[o.Strategy] = append(returns[o.Strategy], o.ReturnPct)
	}
	out := make([]StrategyPerformance, 0, len(byStrategy))
	for name, perf := range byStrategy {
		if perf.Trades > 0 {
			perf.WinRate = float64(perf.Wins) / float64(perf.Trades)
		}
		rs := returns[name]
		if mean, err := stats.Mean(rs); err == nil {
			perf.AvgReturn = mean
		}
		if sd, err := stats.StandardDeviationSample(rs); err == nil && sd > 0 {
			perf.Sharpe = perf.AvgReturn / sd
		}
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out, nil
}

// PortfolioStatsSince computes equity-curve statistics over snapshots
// taken at or after the cutoff.
func (s *Store) PortfolioStatsSince(ctx context.Context, since time.Time) (PortfolioStats, error) {
	snaps, err := s.SnapshotsSince(ctx, since)
	if err != nil {
		return PortfolioStats{}, err
	}
	out := PortfolioStats{Samples: len(snaps)}
	if len(snaps) < 2 {
		return out, nil
	}
	values := make([]float64, 0, len(snaps))
	for _, snap := range snaps {
		v, _ := snap.TotalValue.Float64()
		values = append(values, v)
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns = append(returns, values[i]/values[i-1]-1)
		}
	}
	if values[0] > 0 {
		out.TotalReturn = values[len(values)-1]/values[0] - 1
	}
	if sd, err := stats.StandardDeviationSample(returns); err == nil {
		out.Volatility = sd
		if mean, err := stats.Mean(returns); err == nil && sd > 0 {
			out.Sharpe = mean / sd
		}
	}
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > out.MaxDrawdown {
				out.MaxDrawdown = dd
			}
		}
	}
	return out, nil
}

// AverageEntry replays a symbol's filled orders and returns the
// cost-basis average entry price of the remaining position. Sells reduce
// quantity at the current average; a flat position resets the basis.
func (s *Store) AverageEntry(ctx context.Context, symbol string) (decimal.Decimal, error) {
	orders, err := s.FilledOrdersBySymbol(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	var qty, cost decimal.Decimal
	for _, o := range orders {
		switch o.Side {
		case types.SideBuy:
			qty = qty.Add(o.Quantity)
			cost = cost.Add(o.Notional)
		case types.SideSell:
			if qty.IsPositive() {
				avg := cost.Div(qty)
				sold := decimal.Min(o.Quantity, qty)
				qty = qty.Sub(sold)
				cost = cost.Sub(avg.Mul(sold))
				if !qty.IsPositive() {
					qty = decimal.Zero
					cost = decimal.Zero
				}
			}
		}
	}
	if !qty.IsPositive() {
		return decimal.Zero, nil
	}
	return cost.Div(qty), nil
}
