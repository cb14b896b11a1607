// Package binance implements the exchange capability and market data
// source against Binance spot via the go-binance SDK.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"drift/internal/gateway/exchange"
	"drift/internal/logger"
	"drift/internal/market"
	"drift/internal/types"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Source struct {
	cfg    Config
	client *gobinance.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := gobinance.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

func (s *Source) Name() string { return "binance" }

// pair joins a base asset with the configured quote, e.g. DOGE -> DOGEUSDT.
func (s *Source) pair(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	sym = strings.ReplaceAll(sym, "/", "")
	if strings.HasSuffix(sym, s.cfg.Quote) {
		return sym
	}
	return sym + s.cfg.Quote
}

func (s *Source) Balances(ctx context.Context) (exchange.Balances, error) {
	account, err := s.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return exchange.Balances{}, fmt.Errorf("fetching account failed: %w", err)
	}
	assets := make(map[string]decimal.Decimal, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil || !free.IsPositive() {
			continue
		}
		assets[strings.ToUpper(b.Asset)] = free
	}
	return exchange.Balances{Assets: assets, UpdatedAt: time.Now()}, nil
}

// CancelOpenOrders cancels open orders whose client ids carry this
// system's prefix. Anything else on the account is left alone.
func (s *Source) CancelOpenOrders(ctx context.Context, symbols []string) (int, error) {
	cancelled := 0
	for _, symbol := range symbols {
		pair := s.pair(symbol)
		open, err := s.client.NewListOpenOrdersService().Symbol(pair).Do(ctx)
		if err != nil {
			return cancelled, fmt.Errorf("listing open orders for %s failed: %w", pair, err)
		}
		for _, o := range open {
			if !exchange.Owned(o.ClientOrderID) {
				continue
			}
			_, err := s.client.NewCancelOrderService().
				Symbol(pair).
				OrderID(o.OrderID).
				Do(ctx)
			if err != nil {
				logger.Warnw("cancel failed", "pair", pair, "order_id", o.OrderID, "err", err)
				continue
			}
			cancelled++
		}
	}
	return cancelled, nil
}

func (s *Source) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (types.Order, error) {
	clientID := req.ClientID
	if clientID == "" {
		clientID = exchange.ClientIDPrefix + uuid.NewString()
	}
	order := types.Order{
		ID:        clientID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Notional:  req.Notional,
		Status:    types.OrderStatusPending,
		Reasoning: req.Reasoning,
		CreatedAt: time.Now(),
	}

	svc := s.client.NewCreateOrderService().
		Symbol(s.pair(req.Symbol)).
		Type(gobinance.OrderTypeMarket).
		NewClientOrderID(clientID)
	switch req.Side {
	case types.SideBuy:
		svc = svc.Side(gobinance.SideTypeBuy).QuoteOrderQty(req.Notional.String())
	case types.SideSell:
		svc = svc.Side(gobinance.SideTypeSell)
		if req.Quantity.IsPositive() {
			svc = svc.Quantity(req.Quantity.String())
		} else {
			svc = svc.QuoteOrderQty(req.Notional.String())
		}
	default:
		return order, fmt.Errorf("unknown side %q", req.Side)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		order.Status = types.OrderStatusFailed
		order.Error = err.Error()
		return order, nil
	}
	order.Status = mapStatus(resp.Status)
	if qty, err := decimal.NewFromString(resp.ExecutedQuantity); err == nil {
		order.Quantity = qty
	}
	if quote, err := decimal.NewFromString(resp.CummulativeQuoteQuantity); err == nil && quote.IsPositive() {
		order.Notional = quote
		if order.Quantity.IsPositive() {
			order.Price = quote.Div(order.Quantity)
		}
	}
	if order.Status == types.OrderStatusFilled {
		order.FilledAt = time.Now()
	}
	return order, nil
}

func (s *Source) OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderStatus, error) {
	resp, err := s.client.NewGetOrderService().
		Symbol(s.pair(symbol)).
		OrigClientOrderID(orderID).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("querying order %s failed: %w", orderID, err)
	}
	return mapStatus(resp.Status), nil
}

func (s *Source) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.client.NewListPricesService().Symbol(s.pair(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching price for %s failed: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", symbol)
	}
	return strconv.ParseFloat(prices[0].Price, 64)
}

// TopVolumeUniverse returns the base assets of the highest quote-volume
// pairs against the configured quote currency.
func (s *Source) TopVolumeUniverse(ctx context.Context, size int) ([]string, error) {
	stats, err := s.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching 24h stats failed: %w", err)
	}
	type entry struct {
		base   string
		volume float64
	}
	entries := make([]entry, 0, len(stats))
	for _, st := range stats {
		if st == nil || !strings.HasSuffix(st.Symbol, s.cfg.Quote) {
			continue
		}
		base := strings.TrimSuffix(st.Symbol, s.cfg.Quote)
		vol, err := strconv.ParseFloat(st.QuoteVolume, 64)
		if err != nil {
			continue
		}
		entries = append(entries, entry{base: base, volume: vol})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].volume > entries[j].volume })
	if size > 0 && len(entries) > size {
		entries = entries[:size]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.base)
	}
	return out, nil
}

// FetchCandles returns up to limit closed hourly candles for symbol.
func (s *Source) FetchCandles(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	kls, err := s.client.NewKlinesService().
		Symbol(s.pair(symbol)).
		Interval("1h").
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s failed: %w", symbol, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

// Change24h returns the 24h percent change for symbol.
func (s *Source) Change24h(ctx context.Context, symbol string) (float64, error) {
	stats, err := s.client.NewListPriceChangeStatsService().Symbol(s.pair(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching 24h change for %s failed: %w", symbol, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return 0, fmt.Errorf("no 24h stats for %s", symbol)
	}
	return strconv.ParseFloat(stats[0].PriceChangePercent, 64)
}

func mapStatus(st gobinance.OrderStatusType) types.OrderStatus {
	switch st {
	case gobinance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case gobinance.OrderStatusTypeCanceled, gobinance.OrderStatusTypeExpired:
		return types.OrderStatusCancelled
	case gobinance.OrderStatusTypeRejected:
		return types.OrderStatusFailed
	default:
		return types.OrderStatusPending
	}
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

var _ exchange.Exchange = (*Source)(nil)
