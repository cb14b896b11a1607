// Package plan turns a normalized target allocation into an ordered,
// constraint-checked sequence of trade intents.
package plan

import (
	"sort"

	"drift/internal/types"

	"github.com/shopspring/decimal"
)

// Planner diffs current holdings against a target allocation.
type Planner struct {
	// DustUSD: deltas with absolute value below this emit no intent.
	DustUSD decimal.Decimal
}

// Build computes delta = target value - current value for every symbol in
// either the snapshot or the target, and emits sell intents for negative
// deltas followed by buy intents for positive ones. Sells always precede
// buys so freed quote balance can fund the buys within the same cycle.
// Within each side the order is the target allocation's insertion order;
// held symbols absent from the target follow in sorted order.
func (p Planner) Build(snapshot types.PortfolioSnapshot, target types.TargetAllocation, totalValue decimal.Decimal) []types.TradeIntent {
	symbols := make([]string, 0, len(target.Symbols)+len(snapshot.Holdings))
	seen := make(map[string]bool, len(target.Symbols))
	for _, sym := range target.Symbols {
		symbols = append(symbols, sym)
		seen[sym] = true
	}
	rest := make([]string, 0, len(snapshot.Holdings))
	for sym := range snapshot.Holdings {
		if !seen[sym] {
			rest = append(rest, sym)
		}
	}
	sort.Strings(rest)
	symbols = append(symbols, rest...)

	var sells, buys []types.TradeIntent
	for _, sym := range symbols {
		targetValue := totalValue.Mul(decimal.NewFromFloat(target.Weight(sym)))
		delta := targetValue.Sub(snapshot.HoldingValue(sym))
		if delta.Abs().LessThan(p.DustUSD) {
			continue
		}
		reason := ""
		if target.Reasoning != nil {
			reason = target.Reasoning[sym]
		}
		strategy := ""
		if target.Attribution != nil {
			strategy = target.Attribution[sym]
		}
		if delta.Sign() < 0 {
			sells = append(sells, types.TradeIntent{
				Symbol:    sym,
				Side:      types.SideSell,
				Notional:  delta.Neg(),
				Strategy:  strategy,
				Reasoning: reason,
			})
		} else {
			buys = append(buys, types.TradeIntent{
				Symbol:    sym,
				Side:      types.SideBuy,
				Notional:  delta,
				Strategy:  strategy,
				Reasoning: reason,
			})
		}
	}
	return append(sells, buys...)
}
