package allocation

import (
	"math"
	"testing"

	"drift/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensembleWeights() []types.StrategyWeight {
	return []types.StrategyWeight{
		{Strategy: "momentum", Fraction: 0.5},
		{Strategy: "sentiment", Fraction: 0.3},
		{Strategy: "contrarian", Fraction: 0.2},
	}
}

// portfolioWith builds a snapshot holding the given quote values plus cash
// making up the rest of total.
func portfolioWith(total float64, values map[string]float64) types.PortfolioSnapshot {
	snap := types.PortfolioSnapshot{
		TotalValue: decimal.NewFromFloat(total),
		Holdings:   map[string]types.AssetHolding{},
	}
	cash := total
	for sym, v := range values {
		snap.Holdings[sym] = types.AssetHolding{
			Symbol:     sym,
			QuoteValue: decimal.NewFromFloat(v),
		}
		cash -= v
	}
	snap.Cash = decimal.NewFromFloat(cash)
	return snap
}

func assertSumsToOne(t *testing.T, target types.TargetAllocation) {
	t.Helper()
	sum := target.CashFraction
	for _, w := range target.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, types.Tolerance)
}

func TestAggregateWeightsByCapitalAndConviction(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0, CashReservePct: 0.05}
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "BTC", Direction: types.StrongBuy, Confidence: 1},
		{Strategy: "sentiment", Symbol: "ETH", Direction: types.Buy, Confidence: 1},
	}
	target, record, err := g.Aggregate(signals, ensembleWeights(), types.PortfolioSnapshot{})
	require.NoError(t, err)

	// BTC score 0.5*1*2=1.0, ETH score 0.3*1*1=0.3
	assert.Equal(t, []string{"BTC", "ETH"}, target.Symbols)
	assert.Greater(t, target.Weights["BTC"], target.Weights["ETH"])
	assert.InDelta(t, 0.05, target.CashFraction, types.Tolerance)
	assertSumsToOne(t, target)

	require.Len(t, record, 2)
	assert.Equal(t, "BTC", record[0].Symbol)
}

func TestAggregateNegativeScoresGetNoWeight(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0, CashReservePct: 0}
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "BTC", Direction: types.Buy, Confidence: 1},
		{Strategy: "momentum", Symbol: "DOGE", Direction: types.StrongSell, Confidence: 1},
	}
	target, _, err := g.Aggregate(signals, ensembleWeights(), types.PortfolioSnapshot{})
	require.NoError(t, err)
	assert.NotContains(t, target.Weights, "DOGE")
	assert.Contains(t, target.Weights, "BTC")
	assert.Equal(t, "momentum", target.Attribution["DOGE"], "sell call carries its strategy")
}

func TestAggregateOpposingSignalsCancel(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0.01, CashReservePct: 0}
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "BTC", Direction: types.Buy, Confidence: 0.4},
		{Strategy: "sentiment", Symbol: "BTC", Direction: types.Sell, Confidence: 0.4},
		{Strategy: "contrarian", Symbol: "ETH", Direction: types.Buy, Confidence: 1},
	}
	// momentum 0.5*0.4*1 = 0.2 vs sentiment 0.3*0.4*(-1) = -0.12: BTC nets
	// +0.08, still above threshold once normalized.
	target, _, err := g.Aggregate(signals, ensembleWeights(), types.PortfolioSnapshot{})
	require.NoError(t, err)
	assert.Contains(t, target.Weights, "ETH")
	assert.Greater(t, target.Weights["ETH"], target.Weights["BTC"])
}

func TestAggregateRejectsUnregisteredStrategy(t *testing.T) {
	g := Aggregator{}
	_, _, err := g.Aggregate([]types.Signal{
		{Strategy: "mystery", Symbol: "BTC", Direction: types.Buy, Confidence: 1},
	}, ensembleWeights(), types.PortfolioSnapshot{})
	assert.Error(t, err)
}

func TestAggregateNoSignalsEmptyPortfolioAllCash(t *testing.T) {
	g := Aggregator{CashReservePct: 0.05}
	target, record, err := g.Aggregate(nil, ensembleWeights(), types.PortfolioSnapshot{})
	require.NoError(t, err)
	assert.Empty(t, record)
	assert.Empty(t, target.Weights)
	assert.InDelta(t, 1.0, target.CashFraction, types.Tolerance)
}

func TestAggregateQuietMarketHoldsPortfolio(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0.1, CashReservePct: 0.05}
	portfolio := portfolioWith(200, map[string]float64{"DOGE": 100, "SOL": 40})

	target, _, err := g.Aggregate(nil, ensembleWeights(), portfolio)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, target.Weights["DOGE"], types.Tolerance)
	assert.InDelta(t, 0.2, target.Weights["SOL"], types.Tolerance)
	assert.InDelta(t, 0.3, target.CashFraction, types.Tolerance)
	assertSumsToOne(t, target)
}

func TestAggregateBelowThresholdHoldsPosition(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0.1, CashReservePct: 0}
	portfolio := portfolioWith(200, map[string]float64{"DOGE": 100})
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "BTC", Direction: types.StrongBuy, Confidence: 1},
		{Strategy: "momentum", Symbol: "DOGE", Direction: types.Buy, Confidence: 0.02},
	}

	// DOGE normalizes to 0.01/1.01, well under the threshold: it is a
	// hold and keeps its current half of the portfolio, so the planner
	// sees a zero delta and emits no trade for it.
	target, _, err := g.Aggregate(signals, ensembleWeights(), portfolio)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, target.Weights["DOGE"], types.Tolerance)
	assert.InDelta(t, 0.5, target.Weights["BTC"], types.Tolerance)
	assertSumsToOne(t, target)
}

func TestAggregateUnsignaledHoldingIsKept(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0.1, CashReservePct: 0.05}
	portfolio := portfolioWith(100, map[string]float64{"SOL": 30})
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "BTC", Direction: types.StrongBuy, Confidence: 1},
	}

	target, _, err := g.Aggregate(signals, ensembleWeights(), portfolio)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, target.Weights["SOL"], types.Tolerance)
	assert.InDelta(t, 0.65, target.Weights["BTC"], types.Tolerance)
	assert.InDelta(t, 0.05, target.CashFraction, types.Tolerance)
	assertSumsToOne(t, target)
}

func TestAggregateAttributionPicksDominantStrategy(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0, CashReservePct: 0}
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "BTC", Direction: types.StrongBuy, Confidence: 1},
		{Strategy: "sentiment", Symbol: "BTC", Direction: types.Buy, Confidence: 0.5},
	}
	target, _, err := g.Aggregate(signals, ensembleWeights(), types.PortfolioSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, "momentum", target.Attribution["BTC"])
}

func TestAggregateDeterministicOrdering(t *testing.T) {
	g := Aggregator{ActivationThreshold: 0, CashReservePct: 0}
	signals := []types.Signal{
		{Strategy: "momentum", Symbol: "ETH", Direction: types.Buy, Confidence: 1},
		{Strategy: "momentum", Symbol: "BTC", Direction: types.Buy, Confidence: 1},
	}
	for i := 0; i < 5; i++ {
		target, _, err := g.Aggregate(signals, ensembleWeights(), types.PortfolioSnapshot{})
		require.NoError(t, err)
		assert.Equal(t, []string{"ETH", "BTC"}, target.Symbols)
		assert.True(t, math.Abs(target.Weights["ETH"]-target.Weights["BTC"]) < types.Tolerance)
	}
}
