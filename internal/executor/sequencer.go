// Package executor drives one cycle's trade plan against the exchange
// capability in a fixed order: cancel stale orders, re-sync balances,
// sells, then buys.
package executor

import (
	"context"
	"fmt"
	"time"

	"drift/internal/gateway/exchange"
	"drift/internal/logger"
	"drift/internal/plan"
	"drift/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// cycle states, in execution order
const (
	stateCancelPending = "cancel_pending"
	stateSyncBalances  = "sync_balances"
	stateExecuteSells  = "execute_sells"
	stateExecuteBuys   = "execute_buys"
	stateDone          = "done"
)

// Report is the outcome of one execution cycle. Per-order failures are
// aggregated here, never raised individually: one rejected trade does not
// abort the cycle.
type Report struct {
	Cancelled int
	Executed  []types.Order
	Pending   []types.Order
	Failed    []types.Order
	Skipped   []plan.SkippedIntent
	Balances  exchange.Balances
	Holdings  map[string]types.AssetHolding
}

// Sequencer owns the in-cycle balance view. That view is rebuilt from the
// exchange at every cycle start and discarded at cycle end; nothing is
// trusted across a cycle boundary.
type Sequencer struct {
	Exchange     exchange.Exchange
	Quote        string
	Filter       plan.Filter
	FillTimeout  time.Duration
	PollInterval time.Duration
}

// SyncHoldings re-reads balances from the exchange and prices every
// non-quote asset, producing the holdings view the planner diffs against.
// Assets whose price cannot be fetched are dropped from the view.
func (s *Sequencer) SyncHoldings(ctx context.Context) (exchange.Balances, map[string]types.AssetHolding, error) {
	balances, err := s.Exchange.Balances(ctx)
	if err != nil {
		return exchange.Balances{}, nil, fmt.Errorf("syncing balances failed: %w", err)
	}
	holdings := make(map[string]types.AssetHolding, len(balances.Assets))
	for asset, qty := range balances.Assets {
		if asset == s.Quote || !qty.IsPositive() {
			continue
		}
		price, err := s.Exchange.LastPrice(ctx, asset)
		if err != nil {
			logger.Warnw("holding unpriced, dropped from view", "asset", asset, "err", err)
			continue
		}
		px := decimal.NewFromFloat(price)
		holdings[asset] = types.AssetHolding{
			Symbol:     asset,
			Quantity:   qty,
			QuoteValue: qty.Mul(px),
		}
	}
	return balances, holdings, nil
}

// RunCycle executes the trade plan. The only error it returns is exchange
// connectivity exhaustion (cancel or balance sync failing outright); all
// per-order outcomes land in the report.
func (s *Sequencer) RunCycle(ctx context.Context, intents []types.TradeIntent) (Report, error) {
	var report Report

	// CancelPending: only orders in our own client-id namespace.
	logger.Debugf("sequencer: %s", stateCancelPending)
	symbols := intentSymbols(intents)
	cancelled, err := s.Exchange.CancelOpenOrders(ctx, symbols)
	if err != nil {
		return report, fmt.Errorf("cancelling stale orders failed: %w", err)
	}
	report.Cancelled = cancelled

	// SyncBalances: the exchange is the single source of truth.
	logger.Debugf("sequencer: %s", stateSyncBalances)
	balances, holdings, err := s.SyncHoldings(ctx)
	if err != nil {
		return report, err
	}
	report.Balances = balances
	report.Holdings = holdings

	available := balances.Free(s.Quote)
	filtered := s.Filter.Apply(available, holdings, intents)
	report.Skipped = filtered.Skipped

	// ExecuteSells then ExecuteBuys, sequentially: a sell settles before
	// its proceeds are assumed available for any buy.
	logger.Debugf("sequencer: %s", stateExecuteSells)
	for _, intent := range filtered.Accepted {
		if intent.Side != types.SideSell {
			continue
		}
		order := s.submit(ctx, intent, holdings)
		s.record(&report, order)
		if order.Status == types.OrderStatusFilled {
			available = available.Add(order.Notional)
		}
	}

	logger.Debugf("sequencer: %s", stateExecuteBuys)
	for _, intent := range filtered.Accepted {
		if intent.Side != types.SideBuy {
			continue
		}
		// Live fills can come back short of the filter's assumption, so
		// re-clamp against the running balance: buys never exceed the
		// capital actually freed.
		if intent.Notional.GreaterThan(available) {
			intent.Notional = available
		}
		if intent.Notional.LessThan(s.Filter.MinTradeUSD) {
			report.Skipped = append(report.Skipped, plan.SkippedIntent{
				Intent: intent, Reason: plan.SkipBelowMinTrade,
			})
			logger.Infow("intent skipped at execution", "symbol", intent.Symbol,
				"notional", intent.Notional.String(), "reason", plan.SkipBelowMinTrade)
			continue
		}
		order := s.submit(ctx, intent, holdings)
		s.record(&report, order)
		if order.Status == types.OrderStatusFilled {
			available = available.Sub(order.Notional)
		}
	}

	logger.Debugf("sequencer: %s", stateDone)
	return report, nil
}

func (s *Sequencer) submit(ctx context.Context, intent types.TradeIntent, holdings map[string]types.AssetHolding) types.Order {
	req := exchange.OrderRequest{
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Notional:  intent.Notional,
		ClientID:  exchange.ClientIDPrefix + uuid.NewString(),
		Reasoning: intent.Reasoning,
	}
	if intent.Side == types.SideSell {
		if h, ok := holdings[intent.Symbol]; ok && h.QuoteValue.IsPositive() {
			// Sell by base quantity: the held fraction matching the
			// requested notional, never more than held.
			qty := h.Quantity.Mul(intent.Notional.Div(h.QuoteValue))
			req.Quantity = decimal.Min(qty, h.Quantity)
		}
	}

	order, err := s.Exchange.SubmitOrder(ctx, req)
	order.Strategy = intent.Strategy
	if err != nil {
		order.ID = req.ClientID
		order.Symbol = intent.Symbol
		order.Side = intent.Side
		order.Notional = intent.Notional
		order.Status = types.OrderStatusFailed
		order.Error = err.Error()
		order.CreatedAt = time.Now()
		return order
	}
	if order.Status == types.OrderStatusPending {
		order = s.awaitFill(ctx, order)
	}
	return order
}

// awaitFill polls for a terminal status within FillTimeout. On timeout
// the order stays pending and is reconciled by the next cycle's balance
// sync; it is never treated as a silent failure.
func (s *Sequencer) awaitFill(ctx context.Context, order types.Order) types.Order {
	timeout := s.FillTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := s.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return order
		case <-time.After(interval):
		}
		status, err := s.Exchange.OrderStatus(ctx, order.Symbol, order.ID)
		if err != nil {
			logger.Warnw("order status poll failed", "order", order.ID, "err", err)
			continue
		}
		if status.Terminal() {
			order.Status = status
			if status == types.OrderStatusFilled {
				order.FilledAt = time.Now()
			}
			return order
		}
	}
	logger.Warnw("fill not confirmed within timeout, left pending", "order", order.ID)
	return order
}

func (s *Sequencer) record(report *Report, order types.Order) {
	switch order.Status {
	case types.OrderStatusFilled:
		report.Executed = append(report.Executed, order)
		logger.Infow("order filled", "symbol", order.Symbol, "side", order.Side,
			"notional", order.Notional.String(), "price", order.Price.String())
	case types.OrderStatusPending:
		report.Pending = append(report.Pending, order)
	default:
		report.Failed = append(report.Failed, order)
		logger.Warnw("order failed", "symbol", order.Symbol, "side", order.Side,
			"notional", order.Notional.String(), "err", order.Error)
	}
}

func intentSymbols(intents []types.TradeIntent) []string {
	seen := make(map[string]bool, len(intents))
	out := make([]string, 0, len(intents))
	for _, it := range intents {
		if !seen[it.Symbol] {
			seen[it.Symbol] = true
			out = append(out, it.Symbol)
		}
	}
	return out
}
