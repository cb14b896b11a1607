// Package market assembles the per-cycle market snapshot the decision
// source consumes: universe, candles, indicators and sentiment.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable signals that too little of the universe could be
// fetched to run the cycle. Missing individual symbols are not an error,
// they are excluded from the snapshot.
var ErrDataUnavailable = errors.New("market data unavailable")

type Candle struct {
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Source is the market data capability (implemented by the binance
// gateway in this repo, anything else behind the same shape).
type Source interface {
	TopVolumeUniverse(ctx context.Context, size int) ([]string, error)
	FetchCandles(ctx context.Context, symbol string, limit int) ([]Candle, error)
	Change24h(ctx context.Context, symbol string) (float64, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// SentimentSource provides pre-computed sentiment features.
type SentimentSource interface {
	FearGreed(ctx context.Context) (FearGreed, error)
	SocialScore(ctx context.Context, symbol string) (float64, error)
}

// FearGreed is the crypto fear & greed index reading.
type FearGreed struct {
	Value          int
	Classification string
	Timestamp      time.Time
}

// AssetBrief is everything the strategies see about one asset.
type AssetBrief struct {
	Symbol      string
	Price       float64
	Change24h   float64
	Candles     []Candle
	RSI         float64
	MACDSignal  string // bullish_cross | bearish_cross | neutral
	Volume24h   float64
	SocialScore float64
}

// Snapshot is the joined result of one cycle's data collection.
type Snapshot struct {
	CollectedAt time.Time
	Briefs      map[string]AssetBrief
	Universe    []string // symbols with usable data, in universe order
	Excluded    []string // symbols dropped for this cycle
	FearGreed   FearGreed
}

// Brief returns the brief for symbol.
func (s Snapshot) Brief(symbol string) (AssetBrief, bool) {
	b, ok := s.Briefs[symbol]
	return b, ok
}
