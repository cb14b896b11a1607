package strategy

import (
	"fmt"

	"drift/internal/market"
	"drift/internal/types"
)

// Momentum follows trend continuation: RSI regime plus MACD crossovers,
// with 24h price change as confirmation.
type Momentum struct{}

func (Momentum) Name() string { return "momentum" }

func (Momentum) Evaluate(brief market.AssetBrief, _ market.Snapshot) (types.Signal, bool) {
	rsi := brief.RSI
	bullish := brief.MACDSignal == market.MACDBullishCross
	bearish := brief.MACDSignal == market.MACDBearishCross

	var direction types.SignalDirection
	switch {
	case rsi >= 60 && bullish:
		direction = types.StrongBuy
	case rsi >= 55 || (bullish && brief.Change24h > 0):
		direction = types.Buy
	case rsi <= 40 && bearish:
		direction = types.StrongSell
	case rsi <= 45 || (bearish && brief.Change24h < 0):
		direction = types.Sell
	default:
		return types.Signal{}, false
	}

	// Confidence grows with distance from the neutral RSI band.
	confidence := clamp01(0.5 + abs(rsi-50)/50)
	if bullish || bearish {
		confidence = clamp01(confidence + 0.1)
	}
	return types.Signal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("rsi=%.1f macd=%s chg24h=%.2f%%", rsi, brief.MACDSignal, brief.Change24h),
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
