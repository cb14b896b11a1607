package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func candlesFromCloses(closes ...float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		out[i] = Candle{Close: c}
	}
	return out
}

func TestRSIShortSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, RSI(nil))
	assert.Equal(t, 50.0, RSI(candlesFromCloses(1, 2, 3)))
}

func TestRSITrendsWithPrice(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 130 - float64(i)
	}
	assert.Greater(t, RSI(candlesFromCloses(rising...)), 70.0)
	assert.Less(t, RSI(candlesFromCloses(falling...)), 30.0)
}

func TestMACDLabelShortSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, MACDNeutral, MACDLabel(candlesFromCloses(1, 2, 3)))
}

func TestMACDLabelEstablishedTrendIsNotACross(t *testing.T) {
	// a steady uptrend keeps the histogram positive, so the last bar
	// never flips sign
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	assert.Equal(t, MACDNeutral, MACDLabel(candlesFromCloses(closes...)))
}

func TestMACDLabelFlatSeriesIsNeutral(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100
	}
	assert.Equal(t, MACDNeutral, MACDLabel(candlesFromCloses(closes...)))
}
