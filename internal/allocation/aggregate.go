package allocation

import (
	"fmt"
	"math"
	"sort"

	"drift/internal/types"
)

// Aggregator combines per-strategy signals into a single target allocation
// using capital-weighted conviction scores (ensemble mode).
type Aggregator struct {
	// ActivationThreshold: assets whose absolute normalized score falls
	// below it are holds and keep their current position untouched.
	ActivationThreshold float64
	CashReservePct      float64
}

// AssetScore is the weighted conviction for one asset, kept for the
// decision record.
type AssetScore struct {
	Symbol string
	Score  float64
}

// Aggregate computes, per asset,
//
//	score = sum over strategies of weight * confidence * strength
//
// normalized by total absolute conviction. Assets at or above the
// activation threshold share the investable capital in proportion to
// score; assets at or below its negative get no weight, so the planner
// sells out of them. Everything in between is a hold: a held position
// keeps its current value fraction and no trade is emitted for it. Held
// assets no strategy spoke about are holds too, and with no usable
// signals at all the whole portfolio is kept as it stands.
//
// Ties and ordering are deterministic: assets keep first-seen order from
// the signal list, and strategy weights are read from the provided set,
// never from ambient state.
func (g Aggregator) Aggregate(signals []types.Signal, weights []types.StrategyWeight, portfolio types.PortfolioSnapshot) (types.TargetAllocation, []AssetScore, error) {
	if len(signals) == 0 {
		return holdCurrent(portfolio), nil, nil
	}

	byStrategy := make(map[string]float64, len(weights))
	for _, w := range weights {
		byStrategy[w.Strategy] = w.Fraction
	}

	order := make([]string, 0, 8)
	scores := make(map[string]float64, 8)
	contrib := make(map[string]map[string]float64, 8)
	for _, sig := range signals {
		w, ok := byStrategy[sig.Strategy]
		if !ok {
			return types.TargetAllocation{}, nil, fmt.Errorf("signal from unregistered strategy %q", sig.Strategy)
		}
		if _, seen := scores[sig.Symbol]; !seen {
			order = append(order, sig.Symbol)
			contrib[sig.Symbol] = map[string]float64{}
		}
		part := w * sig.Confidence * sig.Direction.Strength()
		scores[sig.Symbol] += part
		contrib[sig.Symbol][sig.Strategy] += part
	}

	// Normalize scores by total absolute conviction so the activation
	// threshold is scale-free.
	var totalAbs float64
	for _, s := range scores {
		totalAbs += math.Abs(s)
	}
	if totalAbs == 0 {
		return holdCurrent(portfolio), nil, nil
	}

	held, heldOrder := heldFractions(portfolio)

	record := make([]AssetScore, 0, len(order))
	var buys, holds []string
	var positive float64
	out := types.TargetAllocation{
		Weights:     map[string]float64{},
		Attribution: map[string]string{},
	}
	for _, sym := range order {
		norm := scores[sym] / totalAbs
		record = append(record, AssetScore{Symbol: sym, Score: norm})
		switch {
		case norm > 0 && norm >= g.ActivationThreshold:
			buys = append(buys, sym)
			positive += norm
			out.Attribution[sym] = dominantStrategy(contrib[sym])
		case norm < 0 && norm <= -g.ActivationThreshold:
			// sell conviction: no target weight, the reconciliation
			// planner liquidates the position
			out.Attribution[sym] = dominantStrategy(contrib[sym])
		default:
			if _, ok := held[sym]; ok {
				holds = append(holds, sym)
			}
		}
	}
	for _, sym := range heldOrder {
		if _, scored := scores[sym]; !scored {
			holds = append(holds, sym)
		}
	}

	var heldSum float64
	for _, sym := range holds {
		heldSum += held[sym]
	}
	investable := 1.0 - g.CashReservePct - heldSum
	if positive <= 0 || investable <= 0 {
		// Nothing to buy, or the holds already consume the investable
		// capital. A held asset with buy conviction stays a hold rather
		// than being sold for lack of funding.
		for _, sym := range buys {
			if _, ok := held[sym]; ok {
				holds = append(holds, sym)
				heldSum += held[sym]
			}
		}
		buys = nil
	}

	for _, sym := range buys {
		out.Symbols = append(out.Symbols, sym)
		out.Weights[sym] = investable * (scores[sym] / totalAbs) / positive
	}
	for _, sym := range holds {
		out.Symbols = append(out.Symbols, sym)
		out.Weights[sym] = held[sym]
	}
	out.CashFraction = 1.0
	for _, w := range out.Weights {
		out.CashFraction -= w
	}
	if out.CashFraction < 0 {
		out.CashFraction = 0
	}

	// Highest conviction first in the decision record, declaration order
	// breaking exact ties (sort is stable over first-seen order).
	sort.SliceStable(record, func(i, j int) bool { return record[i].Score > record[j].Score })
	return out, record, nil
}

// holdCurrent mirrors the portfolio as it stands: every held asset keeps
// its value fraction and no trades come out of the cycle.
func holdCurrent(portfolio types.PortfolioSnapshot) types.TargetAllocation {
	fracs, symbols := heldFractions(portfolio)
	out := types.TargetAllocation{Weights: map[string]float64{}, CashFraction: 1.0}
	for _, sym := range symbols {
		out.Symbols = append(out.Symbols, sym)
		out.Weights[sym] = fracs[sym]
		out.CashFraction -= fracs[sym]
	}
	if out.CashFraction < 0 {
		out.CashFraction = 0
	}
	return out
}

// heldFractions returns each held asset's share of total portfolio value,
// with symbols sorted for stable iteration.
func heldFractions(portfolio types.PortfolioSnapshot) (map[string]float64, []string) {
	fracs := make(map[string]float64, len(portfolio.Holdings))
	if !portfolio.TotalValue.IsPositive() {
		return fracs, nil
	}
	symbols := make([]string, 0, len(portfolio.Holdings))
	for sym, h := range portfolio.Holdings {
		if !h.QuoteValue.IsPositive() {
			continue
		}
		frac, _ := h.QuoteValue.Div(portfolio.TotalValue).Float64()
		if frac <= 0 {
			continue
		}
		fracs[sym] = frac
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return fracs, symbols
}

// dominantStrategy returns the strategy with the largest absolute
// contribution, alphabetically first on exact ties.
func dominantStrategy(parts map[string]float64) string {
	best := ""
	bestAbs := -1.0
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if a := math.Abs(parts[name]); a > bestAbs {
			best, bestAbs = name, a
		}
	}
	return best
}
