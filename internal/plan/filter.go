package plan

import (
	"drift/internal/logger"
	"drift/internal/types"

	"github.com/shopspring/decimal"
)

// SkipReason explains why the filter dropped an intent. Skips are surfaced
// individually, never merged into an aggregate.
type SkipReason string

const (
	SkipBelowMinTrade SkipReason = "below_min_trade"
	SkipNothingHeld   SkipReason = "nothing_held"
)

type SkippedIntent struct {
	Intent types.TradeIntent
	Reason SkipReason
}

// FilterResult is the constraint filter's output: the intents to execute,
// sells first and each side in its original relative order, plus the
// individually attributable skips.
type FilterResult struct {
	Accepted []types.TradeIntent
	Skipped  []SkippedIntent
}

// Filter applies balance, position and minimum-size constraints.
type Filter struct {
	MinTradeUSD decimal.Decimal
}

// Apply processes sells before buys regardless of the intents' order,
// tracking a running quote balance. Sell intents are clamped to the value
// actually held (never oversell) and their proceeds credited to the
// running balance, since the sequencer executes all sells before any buy.
// Buy intents are reduced to the available balance; a reduced buy below
// the minimum trade size is dropped, not merged.
//
// The filter is idempotent: Apply(available, Apply(available, xs).Accepted)
// returns the same accepted list.
func (f Filter) Apply(available decimal.Decimal, holdings map[string]types.AssetHolding, intents []types.TradeIntent) FilterResult {
	var res FilterResult
	for _, intent := range intents {
		if intent.Side != types.SideSell {
			continue
		}
		held := decimal.Zero
		if h, ok := holdings[intent.Symbol]; ok {
			held = h.QuoteValue
		}
		notional := decimal.Min(intent.Notional, held)
		if held.IsZero() {
			res.Skipped = append(res.Skipped, SkippedIntent{Intent: intent, Reason: SkipNothingHeld})
			logger.Infow("intent skipped", "symbol", intent.Symbol, "side", intent.Side, "reason", SkipNothingHeld)
			continue
		}
		if notional.LessThan(f.MinTradeUSD) {
			res.Skipped = append(res.Skipped, SkippedIntent{Intent: intent, Reason: SkipBelowMinTrade})
			logger.Infow("intent skipped", "symbol", intent.Symbol, "side", intent.Side,
				"notional", notional.String(), "reason", SkipBelowMinTrade)
			continue
		}
		clamped := intent
		clamped.Notional = notional
		res.Accepted = append(res.Accepted, clamped)
		available = available.Add(notional)
	}
	for _, intent := range intents {
		if intent.Side != types.SideBuy {
			continue
		}
		notional := decimal.Min(intent.Notional, available)
		if notional.LessThan(f.MinTradeUSD) {
			res.Skipped = append(res.Skipped, SkippedIntent{Intent: intent, Reason: SkipBelowMinTrade})
			logger.Infow("intent skipped", "symbol", intent.Symbol, "side", intent.Side,
				"notional", notional.String(), "reason", SkipBelowMinTrade)
			continue
		}
		clamped := intent
		clamped.Notional = notional
		res.Accepted = append(res.Accepted, clamped)
		available = available.Sub(notional)
	}
	return res
}
