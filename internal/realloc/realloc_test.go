package realloc

import (
	"testing"

	"drift/internal/ledger"
	"drift/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultReallocator() *Reallocator {
	return &Reallocator{
		LearningRate: 0.1,
		FloorPct:     0.05,
		MaxPct:       0.50,
		MinTrades:    5,
	}
}

func equalWeights() []types.StrategyWeight {
	third := 1.0 / 3.0
	return []types.StrategyWeight{
		{Strategy: "contrarian", Fraction: third},
		{Strategy: "momentum", Fraction: third},
		{Strategy: "sentiment", Fraction: third},
	}
}

func perfWith(winRates map[string]float64, trades int) []ledger.StrategyPerformance {
	out := make([]ledger.StrategyPerformance, 0, len(winRates))
	for name, wr := range winRates {
		out = append(out, ledger.StrategyPerformance{
			Strategy:    name,
			Trades:      trades,
			WinRate:     wr,
			RealizedPnL: decimal.Zero,
		})
	}
	return out
}

func TestRebalanceOrdersByPerformance(t *testing.T) {
	r := defaultReallocator()
	perf := perfWith(map[string]float64{
		"momentum":   0.70,
		"sentiment":  0.40,
		"contrarian": 0.55,
	}, 10)

	updated, err := r.Rebalance(equalWeights(), perf)
	require.NoError(t, err)

	byName := map[string]float64{}
	var sum float64
	for _, w := range updated {
		byName[w.Strategy] = w.Fraction
		sum += w.Fraction
	}
	assert.Greater(t, byName["momentum"], byName["contrarian"])
	assert.Greater(t, byName["contrarian"], byName["sentiment"])
	for name, f := range byName {
		assert.GreaterOrEqual(t, f, 0.05, "strategy %s below floor", name)
		assert.LessOrEqual(t, f, 0.50, "strategy %s above cap", name)
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "total capital mass must be preserved")
}

func TestRebalanceMovementBoundedByLearningRate(t *testing.T) {
	r := defaultReallocator()
	perf := perfWith(map[string]float64{
		"momentum":   1.0,
		"sentiment":  0.0,
		"contrarian": 0.5,
	}, 10)

	updated, err := r.Rebalance(equalWeights(), perf)
	require.NoError(t, err)
	for _, w := range updated {
		// at lr=0.1 a single cadence moves a third-weight strategy by at
		// most a tenth of the distance to any target in [0,1]
		assert.InDelta(t, 1.0/3.0, w.Fraction, 0.1)
	}
}

func TestRebalanceInsufficientHistory(t *testing.T) {
	r := defaultReallocator()
	perf := perfWith(map[string]float64{
		"momentum":   0.9,
		"sentiment":  0.9,
		"contrarian": 0.9,
	}, 2) // below MinTrades

	_, err := r.Rebalance(equalWeights(), perf)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestRebalanceUnderSampledStrategyKeepsWeight(t *testing.T) {
	r := defaultReallocator()
	perf := []ledger.StrategyPerformance{
		{Strategy: "momentum", Trades: 10, WinRate: 0.8, RealizedPnL: decimal.Zero},
		{Strategy: "sentiment", Trades: 10, WinRate: 0.2, RealizedPnL: decimal.Zero},
		{Strategy: "contrarian", Trades: 1, WinRate: 1.0, RealizedPnL: decimal.Zero},
	}
	updated, err := r.Rebalance(equalWeights(), perf)
	require.NoError(t, err)

	var sum float64
	for _, w := range updated {
		sum += w.Fraction
		if w.Strategy == "contrarian" {
			assert.InDelta(t, 1.0/3.0, w.Fraction, 1e-9,
				"under-sampled strategy must keep its fraction")
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRebalanceRejectsCapTooSmallForWeightMass(t *testing.T) {
	r := defaultReallocator()
	r.MaxPct = 0.30 // 3 * 0.30 < 1.0, no clamp can preserve the mass
	perf := perfWith(map[string]float64{
		"momentum":   0.70,
		"sentiment":  0.40,
		"contrarian": 0.55,
	}, 10)

	_, err := r.Rebalance(equalWeights(), perf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_pct")
}

func TestRebalanceRejectsFloorAboveWeightMass(t *testing.T) {
	r := defaultReallocator()
	r.FloorPct = 0.40
	perf := perfWith(map[string]float64{
		"momentum":   0.70,
		"sentiment":  0.40,
		"contrarian": 0.55,
	}, 10)

	_, err := r.Rebalance(equalWeights(), perf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floor_pct")
}

func TestRebalanceNoStrategies(t *testing.T) {
	r := defaultReallocator()
	_, err := r.Rebalance(nil, nil)
	assert.Error(t, err)
}

func TestRebalanceFloorHolds(t *testing.T) {
	r := defaultReallocator()
	r.LearningRate = 1 // jump straight to target
	perf := perfWith(map[string]float64{
		"momentum":  0.95,
		"sentiment": 0.0,
	}, 20)
	current := []types.StrategyWeight{
		{Strategy: "momentum", Fraction: 0.5},
		{Strategy: "sentiment", Fraction: 0.5},
	}
	updated, err := r.Rebalance(current, perf)
	require.NoError(t, err)
	var sum float64
	for _, w := range updated {
		sum += w.Fraction
		assert.GreaterOrEqual(t, w.Fraction, 0.05)
		assert.LessOrEqual(t, w.Fraction, 0.50+1e-9)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
