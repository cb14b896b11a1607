// Package strategy holds the built-in ensemble strategies. Each one reads
// the market snapshot and emits at most one signal per asset.
package strategy

import (
	"time"

	"drift/internal/market"
	"drift/internal/types"
)

// Strategy is one view-generating member of the ensemble. Evaluate
// returns ok=false when the strategy has no opinion on the asset.
type Strategy interface {
	Name() string
	Evaluate(brief market.AssetBrief, snap market.Snapshot) (types.Signal, bool)
}

// Collect runs every strategy over every briefed asset and returns the
// emitted signals in strategy-then-universe order.
func Collect(strategies []Strategy, snap market.Snapshot) []types.Signal {
	now := time.Now()
	var signals []types.Signal
	for _, s := range strategies {
		for _, symbol := range snap.Universe {
			brief, ok := snap.Brief(symbol)
			if !ok {
				continue
			}
			sig, ok := s.Evaluate(brief, snap)
			if !ok {
				continue
			}
			sig.Strategy = s.Name()
			sig.Symbol = symbol
			if sig.CreatedAt.IsZero() {
				sig.CreatedAt = now
			}
			signals = append(signals, sig)
		}
	}
	return signals
}
