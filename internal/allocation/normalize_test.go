package allocation

import (
	"testing"

	"drift/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClampsOverCapToCash(t *testing.T) {
	n := Normalizer{MaxPositionPct: 0.80, CashReservePct: 0}
	raw := types.TargetAllocation{
		Weights:      map[string]float64{"DOGE": 0.95},
		Symbols:      []string{"DOGE"},
		CashFraction: 0.05,
	}
	out, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.InDelta(t, 0.80, out.Weights["DOGE"], types.Tolerance)
	assert.InDelta(t, 0.20, out.CashFraction, types.Tolerance)
}

func TestNormalizeRejectsNegativeWeight(t *testing.T) {
	n := Normalizer{MaxPositionPct: 0.5, CashReservePct: 0}
	_, err := n.Normalize(types.TargetAllocation{
		Weights:      map[string]float64{"BTC": -0.1},
		Symbols:      []string{"BTC"},
		CashFraction: 1.1,
	})
	assert.ErrorIs(t, err, ErrInvalidAllocation)
}

func TestNormalizeRejectsBadSum(t *testing.T) {
	n := Normalizer{MaxPositionPct: 0.5, CashReservePct: 0}
	_, err := n.Normalize(types.TargetAllocation{
		Weights:      map[string]float64{"BTC": 0.4, "ETH": 0.4},
		Symbols:      []string{"BTC", "ETH"},
		CashFraction: 0.3, // sums to 1.1
	})
	assert.ErrorIs(t, err, ErrInvalidAllocation)
}

func TestNormalizeEnforcesCashReserve(t *testing.T) {
	n := Normalizer{MaxPositionPct: 0.6, CashReservePct: 0.10}
	raw := types.TargetAllocation{
		Weights:      map[string]float64{"BTC": 0.6, "ETH": 0.4},
		Symbols:      []string{"BTC", "ETH"},
		CashFraction: 0,
	}
	out, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, out.CashFraction, types.Tolerance)
	assert.InDelta(t, 0.54, out.Weights["BTC"], 1e-9)
	assert.InDelta(t, 0.36, out.Weights["ETH"], 1e-9)

	sum := out.CashFraction
	for _, w := range out.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, types.Tolerance)
}

func TestNormalizeTolerantOfFloatNoise(t *testing.T) {
	n := Normalizer{MaxPositionPct: 0.8, CashReservePct: 0}
	raw := types.TargetAllocation{
		Weights:      map[string]float64{"BTC": 0.3, "ETH": 0.3},
		Symbols:      []string{"BTC", "ETH"},
		CashFraction: 0.4 + 1e-9,
	}
	_, err := n.Normalize(raw)
	assert.NoError(t, err)
}
