package strategy

import (
	"fmt"

	"drift/internal/market"
	"drift/internal/types"
)

// Sentiment trades with the crowd: broad fear & greed plus per-asset
// social score. It abstains when both readings are mid-range.
type Sentiment struct{}

func (Sentiment) Name() string { return "sentiment" }

func (Sentiment) Evaluate(brief market.AssetBrief, snap market.Snapshot) (types.Signal, bool) {
	fg := snap.FearGreed.Value
	social := brief.SocialScore // -1..1, zero when no feed is wired

	// Blend the index (rescaled to -1..1 around 50) with the social
	// score, equal weight when both present.
	blended := (float64(fg) - 50) / 50
	if social != 0 {
		blended = (blended + social) / 2
	}

	var direction types.SignalDirection
	switch {
	case blended >= 0.5:
		direction = types.StrongBuy
	case blended >= 0.2:
		direction = types.Buy
	case blended <= -0.5:
		direction = types.StrongSell
	case blended <= -0.2:
		direction = types.Sell
	default:
		return types.Signal{}, false
	}
	return types.Signal{
		Direction:  direction,
		Confidence: clamp01(abs(blended)),
		Reasoning:  fmt.Sprintf("fear_greed=%d (%s) social=%.2f", fg, snap.FearGreed.Classification, social),
	}, true
}
