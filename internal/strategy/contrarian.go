package strategy

import (
	"fmt"

	"drift/internal/market"
	"drift/internal/types"
)

// Contrarian fades extremes: oversold assets in a fearful market are
// buys, overbought assets in a greedy market are sells. It only speaks
// at the edges.
type Contrarian struct{}

func (Contrarian) Name() string { return "contrarian" }

func (Contrarian) Evaluate(brief market.AssetBrief, snap market.Snapshot) (types.Signal, bool) {
	rsi := brief.RSI
	fg := snap.FearGreed.Value

	var direction types.SignalDirection
	switch {
	case rsi <= 25 && fg <= 25:
		direction = types.StrongBuy
	case rsi <= 30:
		direction = types.Buy
	case rsi >= 75 && fg >= 75:
		direction = types.StrongSell
	case rsi >= 70:
		direction = types.Sell
	default:
		return types.Signal{}, false
	}

	// Deeper extremes, stronger conviction.
	confidence := clamp01(abs(rsi-50)/50 + 0.2)
	return types.Signal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("rsi=%.1f fear_greed=%d", rsi, fg),
	}, true
}
