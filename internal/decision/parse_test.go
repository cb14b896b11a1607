package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
	"allocations": [
		{"symbol": "DOGE", "percent": 40, "reasoning": "volume breakout"},
		{"symbol": "SOL", "percent": 25, "reasoning": "oversold bounce"}
	],
	"usdt_percent": 35,
	"market_outlook": "neutral",
	"conviction": "medium"
}`

func TestParseAllocationValid(t *testing.T) {
	target, err := ParseAllocation(validResponse)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE", "SOL"}, target.Symbols)
	assert.InDelta(t, 0.40, target.Weights["DOGE"], 1e-9)
	assert.InDelta(t, 0.25, target.Weights["SOL"], 1e-9)
	assert.InDelta(t, 0.35, target.CashFraction, 1e-9)
	assert.Equal(t, "neutral", target.Outlook)
	assert.Equal(t, "volume breakout", target.Reasoning["DOGE"])
}

func TestParseAllocationStripsMarkdownFences(t *testing.T) {
	wrapped := "```json\n" + validResponse + "\n```"
	target, err := ParseAllocation(wrapped)
	require.NoError(t, err)
	assert.InDelta(t, 0.40, target.Weights["DOGE"], 1e-9)
}

func TestParseAllocationSalvagesFromProse(t *testing.T) {
	noisy := "Here is my allocation:\n" + validResponse + "\nGood luck."
	target, err := ParseAllocation(noisy)
	require.NoError(t, err)
	assert.Len(t, target.Weights, 2)
}

func TestParseAllocationRejectsBadSum(t *testing.T) {
	_, err := ParseAllocation(`{
		"allocations": [{"symbol": "BTC", "percent": 40}],
		"usdt_percent": 40
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")
}

func TestParseAllocationRejectsNegativePercent(t *testing.T) {
	_, err := ParseAllocation(`{
		"allocations": [{"symbol": "BTC", "percent": -10}],
		"usdt_percent": 110
	}`)
	assert.Error(t, err)
}

func TestParseAllocationRejectsMissingFields(t *testing.T) {
	_, err := ParseAllocation(`{"allocations": [{"symbol": "BTC", "percent": 50}]}`)
	assert.Error(t, err, "usdt_percent is required")

	_, err = ParseAllocation(`{"usdt_percent": 100}`)
	assert.Error(t, err, "allocations is required")
}

func TestParseAllocationAccumulatesRepeatedSymbols(t *testing.T) {
	target, err := ParseAllocation(`{
		"allocations": [
			{"symbol": "BTC", "percent": 30},
			{"symbol": "btc", "percent": 20}
		],
		"usdt_percent": 50
	}`)
	require.NoError(t, err)
	assert.Len(t, target.Symbols, 1)
	assert.InDelta(t, 0.50, target.Weights["BTC"], 1e-9)
}

func TestParseAllocationToleratesSmallDrift(t *testing.T) {
	_, err := ParseAllocation(`{
		"allocations": [{"symbol": "BTC", "percent": 60.2}],
		"usdt_percent": 39.9
	}`)
	assert.NoError(t, err, "0.1 off 100 is within tolerance")
}

func TestCoerceAllocationJSONUnwrapsDecisionKey(t *testing.T) {
	raw := `{"decision": {"allocations": [], "usdt_percent": 100}}`
	coerced, err := CoerceAllocationJSON(raw)
	require.NoError(t, err)
	assert.Contains(t, coerced, "usdt_percent")
	assert.NotContains(t, coerced, "decision")
}

func TestCoerceAllocationJSONRejectsGarbage(t *testing.T) {
	_, err := CoerceAllocationJSON("not json at all")
	assert.Error(t, err)
	_, err = CoerceAllocationJSON("")
	assert.Error(t, err)
	_, err = CoerceAllocationJSON(`[1, 2, 3]`)
	assert.Error(t, err)
}
