package market

import (
	talib "github.com/markcheno/go-talib"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACD crossover labels carried on AssetBrief.MACDSignal.
const (
	MACDBullishCross = "bullish_cross"
	MACDBearishCross = "bearish_cross"
	MACDNeutral      = "neutral"
)

// RSI returns the latest RSI(14) value for the candle series, or 50 when
// the series is too short to compute one.
func RSI(candles []Candle) float64 {
	if len(candles) < rsiPeriod+1 {
		return 50
	}
	series := talib.Rsi(closes(candles), rsiPeriod)
	if len(series) == 0 {
		return 50
	}
	return series[len(series)-1]
}

// MACDLabel classifies the most recent MACD histogram transition:
// a sign flip on the last bar is a crossover, anything else is neutral.
func MACDLabel(candles []Candle) string {
	if len(candles) < macdSlow+macdSignal {
		return MACDNeutral
	}
	_, _, hist := talib.Macd(closes(candles), macdFast, macdSlow, macdSignal)
	if len(hist) < 2 {
		return MACDNeutral
	}
	prev, cur := hist[len(hist)-2], hist[len(hist)-1]
	switch {
	case prev <= 0 && cur > 0:
		return MACDBullishCross
	case prev >= 0 && cur < 0:
		return MACDBearishCross
	default:
		return MACDNeutral
	}
}

func closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
