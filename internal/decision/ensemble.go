package decision

import (
	"context"
	"fmt"

	"drift/internal/allocation"
	"drift/internal/logger"
	"drift/internal/market"
	"drift/internal/strategy"
	"drift/internal/types"
)

// WeightProvider returns the current strategy capital weights.
type WeightProvider interface {
	StrategyWeights(ctx context.Context) ([]types.StrategyWeight, error)
}

// Ensemble aggregates built-in strategy signals into a target allocation
// using the persisted strategy weights.
type Ensemble struct {
	Strategies []strategy.Strategy
	Weights    WeightProvider
	Aggregator allocation.Aggregator
}

func (e *Ensemble) Name() string { return "ensemble" }

func (e *Ensemble) Decide(ctx context.Context, snap market.Snapshot, portfolio types.PortfolioSnapshot) (types.TargetAllocation, error) {
	weights, err := e.Weights.StrategyWeights(ctx)
	if err != nil {
		return types.TargetAllocation{}, fmt.Errorf("loading strategy weights failed: %w", err)
	}
	signals := strategy.Collect(e.Strategies, snap)
	logger.Debugf("ensemble collected %d signals across %d assets", len(signals), len(snap.Universe))

	target, scores, err := e.Aggregator.Aggregate(signals, weights, portfolio)
	if err != nil {
		return types.TargetAllocation{}, err
	}
	if target.Reasoning == nil {
		target.Reasoning = map[string]string{}
	}
	for _, sc := range scores {
		target.Reasoning[sc.Symbol] = fmt.Sprintf("ensemble score %.4f", sc.Score)
	}
	return target, nil
}
