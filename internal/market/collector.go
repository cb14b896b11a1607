package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drift/internal/logger"

	"golang.org/x/sync/errgroup"
)

// Collector gathers briefs for a universe of symbols concurrently. Each
// symbol's fetches are independent and side-effect free, so they run in
// parallel behind a join; a slow or failing symbol never blocks the cycle
// past the overall deadline, it is simply excluded.
type Collector struct {
	Source    Source
	Sentiment SentimentSource

	CandleLimit     int
	FetchTimeout    time.Duration // per symbol
	CollectDeadline time.Duration // whole universe
	MinQuorum       int           // usable symbols required
	MaxParallel     int
}

// Collect builds the cycle snapshot. It returns ErrDataUnavailable only
// when fewer than MinQuorum symbols produced usable data.
func (c Collector) Collect(ctx context.Context, symbols []string) (Snapshot, error) {
	snap := Snapshot{
		CollectedAt: time.Now(),
		Briefs:      make(map[string]AssetBrief, len(symbols)),
	}
	if len(symbols) == 0 {
		return snap, fmt.Errorf("%w: empty universe", ErrDataUnavailable)
	}

	deadline := c.CollectDeadline
	if deadline <= 0 {
		deadline = 45 * time.Second
	}
	collectCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	g, gctx := errgroup.WithContext(collectCtx)
	parallel := c.MaxParallel
	if parallel <= 0 {
		parallel = 8
	}
	g.SetLimit(parallel)

	var mu sync.Mutex
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			brief, err := c.fetchOne(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				snap.Excluded = append(snap.Excluded, symbol)
				logger.Warnw("symbol excluded from cycle", "symbol", symbol, "err", err)
				return nil // per-symbol failure never fails the join
			}
			snap.Briefs[symbol] = brief
			return nil
		})
	}
	if c.Sentiment != nil {
		g.Go(func() error {
			fg, err := c.Sentiment.FearGreed(gctx)
			if err != nil {
				logger.Warnf("fear & greed unavailable: %v", err)
				return nil
			}
			mu.Lock()
			snap.FearGreed = fg
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, symbol := range symbols {
		if _, ok := snap.Briefs[symbol]; ok {
			snap.Universe = append(snap.Universe, symbol)
		}
	}
	quorum := c.MinQuorum
	if quorum <= 0 {
		quorum = 1
	}
	if len(snap.Universe) < quorum {
		return snap, fmt.Errorf("%w: %d of %d symbols usable, quorum %d",
			ErrDataUnavailable, len(snap.Universe), len(symbols), quorum)
	}
	return snap, nil
}

func (c Collector) fetchOne(ctx context.Context, symbol string) (AssetBrief, error) {
	timeout := c.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := c.CandleLimit
	if limit <= 0 {
		limit = 100
	}
	candles, err := c.Source.FetchCandles(fetchCtx, symbol, limit)
	if err != nil {
		return AssetBrief{}, err
	}
	if len(candles) == 0 {
		return AssetBrief{}, fmt.Errorf("no candles")
	}
	change, err := c.Source.Change24h(fetchCtx, symbol)
	if err != nil {
		return AssetBrief{}, err
	}

	brief := AssetBrief{
		Symbol:     symbol,
		Price:      candles[len(candles)-1].Close,
		Change24h:  change,
		Candles:    candles,
		RSI:        RSI(candles),
		MACDSignal: MACDLabel(candles),
		Volume24h:  candles[len(candles)-1].Volume,
	}
	if c.Sentiment != nil {
		if score, err := c.Sentiment.SocialScore(fetchCtx, symbol); err == nil {
			brief.SocialScore = score
		}
	}
	return brief, nil
}
