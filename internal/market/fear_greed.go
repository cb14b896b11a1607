package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	fearGreedEndpoint = "https://api.alternative.me/fng/?limit=1"
	fearGreedMaxAge   = 30 * time.Minute
	fearGreedBackoff  = 2 * time.Minute
)

// AlternativeMe serves the crypto Fear & Greed index with caching, so the
// cycle never hammers the public endpoint. SocialScore is not provided by
// this source; per-asset social sentiment arrives pre-computed from an
// external collaborator when one is configured.
type AlternativeMe struct {
	endpoint string
	client   *http.Client

	mu        sync.Mutex
	cached    FearGreed
	fetchedAt time.Time
	retryAt   time.Time
}

func NewAlternativeMe() *AlternativeMe {
	return &AlternativeMe{
		endpoint: fearGreedEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *AlternativeMe) FearGreed(ctx context.Context) (FearGreed, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	if !a.fetchedAt.IsZero() && now.Sub(a.fetchedAt) < fearGreedMaxAge {
		return a.cached, nil
	}
	if now.Before(a.retryAt) {
		if a.fetchedAt.IsZero() {
			return FearGreed{}, fmt.Errorf("fear & greed backing off until %s", a.retryAt.Format(time.RFC3339))
		}
		return a.cached, nil
	}
	fg, err := a.fetch(ctx)
	if err != nil {
		a.retryAt = now.Add(fearGreedBackoff)
		if a.fetchedAt.IsZero() {
			return FearGreed{}, err
		}
		return a.cached, nil
	}
	a.cached = fg
	a.fetchedAt = now
	return fg, nil
}

func (a *AlternativeMe) SocialScore(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

type fearGreedPayload struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

func (a *AlternativeMe) fetch(ctx context.Context) (FearGreed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint, nil)
	if err != nil {
		return FearGreed{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return FearGreed{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FearGreed{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var payload fearGreedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FearGreed{}, err
	}
	if len(payload.Data) == 0 {
		return FearGreed{}, fmt.Errorf("fear & greed response empty")
	}
	item := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(item.Value))
	if err != nil {
		return FearGreed{}, fmt.Errorf("fear & greed value invalid: %w", err)
	}
	var ts time.Time
	if sec, err := strconv.ParseInt(strings.TrimSpace(item.Timestamp), 10, 64); err == nil {
		ts = time.Unix(sec, 0).UTC()
	}
	return FearGreed{
		Value:          value,
		Classification: strings.TrimSpace(item.ValueClassification),
		Timestamp:      ts,
	}, nil
}

var _ SentimentSource = (*AlternativeMe)(nil)
