// Package paper simulates an exchange for paper trading. Orders fill
// synchronously at the last known market price against an internal
// balance book seeded from the configured initial capital.
package paper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"drift/internal/gateway/exchange"
	"drift/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceFeed supplies last traded prices; in practice the binance source.
type PriceFeed interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

type Exchange struct {
	quote  string
	prices PriceFeed

	mu    sync.Mutex
	book  map[string]decimal.Decimal
	known map[string]types.OrderStatus // id -> terminal status
}

func New(quote string, initialCapital decimal.Decimal, prices PriceFeed) *Exchange {
	book := map[string]decimal.Decimal{
		strings.ToUpper(quote): initialCapital,
	}
	return &Exchange{
		quote:  strings.ToUpper(quote),
		prices: prices,
		book:   book,
		known:  map[string]types.OrderStatus{},
	}
}

func (e *Exchange) Name() string { return "paper" }

func (e *Exchange) Balances(ctx context.Context) (exchange.Balances, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	assets := make(map[string]decimal.Decimal, len(e.book))
	for sym, qty := range e.book {
		if qty.IsPositive() {
			assets[sym] = qty
		}
	}
	return exchange.Balances{Assets: assets, UpdatedAt: time.Now()}, nil
}

// CancelOpenOrders is a no-op: paper orders fill synchronously, nothing
// stays open across cycles.
func (e *Exchange) CancelOpenOrders(ctx context.Context, symbols []string) (int, error) {
	return 0, nil
}

func (e *Exchange) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (types.Order, error) {
	order := types.Order{
		ID:        "paper_" + uuid.NewString()[:12],
		Symbol:    req.Symbol,
		Side:      req.Side,
		Notional:  req.Notional,
		Status:    types.OrderStatusPending,
		Reasoning: req.Reasoning,
		CreatedAt: time.Now(),
	}
	price, err := e.prices.LastPrice(ctx, req.Symbol)
	if err != nil {
		order.Status = types.OrderStatusFailed
		order.Error = fmt.Sprintf("paper fill price unavailable: %v", err)
		e.remember(order)
		return order, nil
	}
	px := decimal.NewFromFloat(price)
	if !px.IsPositive() {
		order.Status = types.OrderStatusFailed
		order.Error = "paper fill price is zero"
		e.remember(order)
		return order, nil
	}

	qty := req.Quantity
	if qty.IsZero() {
		qty = req.Notional.Div(px)
	}
	notional := qty.Mul(px)

	e.mu.Lock()
	defer e.mu.Unlock()
	asset := strings.ToUpper(req.Symbol)
	switch req.Side {
	case types.SideBuy:
		if e.book[e.quote].LessThan(notional) {
			order.Status = types.OrderStatusFailed
			order.Error = fmt.Sprintf("insufficient %s: have %s, need %s",
				e.quote, e.book[e.quote].String(), notional.String())
			e.known[order.ID] = order.Status
			return order, nil
		}
		e.book[e.quote] = e.book[e.quote].Sub(notional)
		e.book[asset] = e.book[asset].Add(qty)
	case types.SideSell:
		held := e.book[asset]
		if held.LessThan(qty) {
			// Clamp rather than reject: the filter should have prevented
			// this, but rounding between cycles can leave a hair less.
			qty = held
			notional = qty.Mul(px)
		}
		if qty.IsZero() {
			order.Status = types.OrderStatusFailed
			order.Error = fmt.Sprintf("nothing held in %s", asset)
			e.known[order.ID] = order.Status
			return order, nil
		}
		e.book[asset] = e.book[asset].Sub(qty)
		e.book[e.quote] = e.book[e.quote].Add(notional)
	default:
		order.Status = types.OrderStatusFailed
		order.Error = fmt.Sprintf("unknown side %q", req.Side)
		e.known[order.ID] = order.Status
		return order, nil
	}

	order.Quantity = qty
	order.Price = px
	order.Notional = notional
	order.Status = types.OrderStatusFilled
	order.FilledAt = time.Now()
	e.known[order.ID] = order.Status
	return order, nil
}

func (e *Exchange) OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.known[orderID]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown paper order %s", orderID)
}

func (e *Exchange) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return e.prices.LastPrice(ctx, symbol)
}

func (e *Exchange) remember(order types.Order) {
	e.mu.Lock()
	e.known[order.ID] = order.Status
	e.mu.Unlock()
}

var _ exchange.Exchange = (*Exchange)(nil)
