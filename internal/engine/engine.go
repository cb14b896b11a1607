// Package engine runs the trading cycle: collect market data, decide a
// target allocation, normalize it, plan the reconciliation, execute, and
// record the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"drift/internal/allocation"
	"drift/internal/config"
	"drift/internal/decision"
	"drift/internal/executor"
	"drift/internal/ledger"
	"drift/internal/logger"
	"drift/internal/market"
	"drift/internal/plan"
	"drift/internal/realloc"
	"drift/internal/types"

	"github.com/shopspring/decimal"
)

// PauseFlag reports whether cycles should be skipped. Implemented by the
// config watcher so a config edit pauses trading without a restart.
type PauseFlag interface {
	Paused() bool
}

// Engine owns the cycle loop. Everything it coordinates is injected; it
// holds no exchange or storage logic of its own.
type Engine struct {
	Config      *config.Config
	Pause       PauseFlag
	Market      market.Source
	Collector   market.Collector
	Source      decision.Source
	Normalizer  allocation.Normalizer
	Planner     plan.Planner
	Sequencer   *executor.Sequencer
	Store       *ledger.Store
	Reallocator *realloc.Reallocator

	cycles      atomic.Int64
	lastRealloc time.Time
	baseline    decimal.Decimal
}

// Cycles returns how many cycles have completed since start.
func (e *Engine) Cycles() int64 { return e.cycles.Load() }

// Run blocks until ctx is cancelled or the configured cycle budget is
// spent. A cycle in flight always completes; cancellation is observed
// between cycles.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.Config.Trading.IntervalMinutes) * time.Minute
	sched := &IntervalScheduler{Interval: interval, RunImmediately: true}
	sched.Start(ctx, func() bool {
		if e.Pause != nil && e.Pause.Paused() {
			logger.Infof("engine: paused, skipping cycle")
			return true
		}
		// The running cycle is bounded by the interval, not by ctx, so
		// shutdown never abandons half-executed trades.
		cycleCtx, cancel := context.WithTimeout(context.Background(), interval)
		if err := e.runCycle(cycleCtx); err != nil {
			logger.Errorf("engine: cycle %d failed: %v", e.cycles.Load()+1, err)
		}
		cancel()
		n := e.cycles.Add(1)
		if budget := e.Config.Trading.MaxCycles; budget > 0 && n >= int64(budget) {
			logger.Infof("engine: cycle budget spent (%d), stopping", budget)
			return false
		}
		return true
	})
	return nil
}

func (e *Engine) runCycle(ctx context.Context) error {
	started := time.Now()
	logger.Infof("engine: cycle %d starting", e.cycles.Load()+1)

	if err := e.reconcilePending(ctx); err != nil {
		logger.Warnw("pending order reconciliation incomplete", "err", err)
	}

	universe, err := e.resolveUniverse(ctx)
	if err != nil {
		return fmt.Errorf("resolving universe failed: %w", err)
	}
	snap, err := e.Collector.Collect(ctx, universe)
	if err != nil {
		return fmt.Errorf("market collection failed: %w", err)
	}

	portfolio, err := e.portfolioView(ctx)
	if err != nil {
		return err
	}

	raw, err := e.Source.Decide(ctx, snap, portfolio)
	if err != nil {
		return fmt.Errorf("decision failed: %w", err)
	}
	target, err := e.Normalizer.Normalize(raw)
	if err != nil {
		return fmt.Errorf("allocation rejected: %w", err)
	}

	intents := e.Planner.Build(portfolio, target, portfolio.TotalValue)
	logger.Infof("engine: plan has %d intents for total value %s", len(intents), portfolio.TotalValue.StringFixed(2))
	report, err := e.Sequencer.RunCycle(ctx, intents)
	if err != nil {
		return err
	}
	e.persistReport(ctx, report)

	if err := e.recordSnapshot(ctx); err != nil {
		logger.Warnw("snapshot not recorded", "err", err)
	}
	e.maybeReallocate(ctx)

	logger.Infof("engine: cycle %d done in %s (%d filled, %d pending, %d failed, %d skipped)",
		e.cycles.Load()+1, time.Since(started).Truncate(time.Millisecond),
		len(report.Executed), len(report.Pending), len(report.Failed), len(report.Skipped))
	return nil
}

func (e *Engine) resolveUniverse(ctx context.Context) ([]string, error) {
	if syms := e.Config.Trading.Symbols; len(syms) > 0 {
		return syms, nil
	}
	return e.Market.TopVolumeUniverse(ctx, e.Config.Trading.UniverseSize)
}

// portfolioView builds the pre-trade portfolio snapshot from a fresh
// balance sync, with cost-basis entries replayed from the ledger.
func (e *Engine) portfolioView(ctx context.Context) (types.PortfolioSnapshot, error) {
	balances, holdings, err := e.Sequencer.SyncHoldings(ctx)
	if err != nil {
		return types.PortfolioSnapshot{}, err
	}
	cash := balances.Free(e.Config.Trading.QuoteCurrency)
	total := cash
	for sym, h := range holdings {
		total = total.Add(h.QuoteValue)
		if avg, err := e.Store.AverageEntry(ctx, sym); err == nil {
			h.AvgEntry = avg
			holdings[sym] = h
		}
	}
	snap := types.PortfolioSnapshot{
		Timestamp:  time.Now(),
		Cash:       cash,
		TotalValue: total,
		Holdings:   holdings,
	}
	base := e.baselineValue(ctx, total)
	if base.IsPositive() {
		snap.PnL = total.Sub(base)
		pct, _ := snap.PnL.Div(base).Float64()
		snap.PnLPct = pct * 100
	}
	return snap, nil
}

func (e *Engine) baselineValue(ctx context.Context, current decimal.Decimal) decimal.Decimal {
	if e.baseline.IsPositive() {
		return e.baseline
	}
	if seed := e.Config.Trading.InitialCapital; seed > 0 {
		e.baseline = decimal.NewFromFloat(seed)
		return e.baseline
	}
	if first, ok, err := e.Store.FirstSnapshot(ctx); err == nil && ok {
		e.baseline = first.TotalValue
		return e.baseline
	}
	e.baseline = current
	return e.baseline
}

// reconcilePending re-checks orders the previous cycle left pending.
func (e *Engine) reconcilePending(ctx context.Context) error {
	pending, err := e.Store.PendingOrders(ctx)
	if err != nil {
		return err
	}
	for _, order := range pending {
		status, err := e.Sequencer.Exchange.OrderStatus(ctx, order.Symbol, order.ID)
		if err != nil {
			logger.Warnw("pending order status unknown", "order", order.ID, "err", err)
			continue
		}
		if !status.Terminal() {
			continue
		}
		order.Status = status
		if status == types.OrderStatusFilled && order.FilledAt.IsZero() {
			order.FilledAt = time.Now()
		}
		if err := e.Store.UpsertOrder(ctx, order); err != nil {
			return err
		}
		logger.Infow("pending order resolved", "order", order.ID, "status", status)
	}
	return nil
}

// persistReport writes every order outcome and, for filled sells, the
// realized round trip attributed to the order's strategy.
func (e *Engine) persistReport(ctx context.Context, report executor.Report) {
	for _, order := range report.Executed {
		if order.Side == types.SideSell {
			e.recordOutcome(ctx, order)
		}
	}
	all := make([]types.Order, 0, len(report.Executed)+len(report.Pending)+len(report.Failed))
	all = append(all, report.Executed...)
	all = append(all, report.Pending...)
	all = append(all, report.Failed...)
	if err := e.Store.UpsertOrders(ctx, all); err != nil {
		logger.Errorf("engine: persisting %d orders failed: %v", len(all), err)
	}
}

// recordOutcome computes realized P&L for a filled sell against the
// cost basis replayed from orders recorded before this one.
func (e *Engine) recordOutcome(ctx context.Context, order types.Order) {
	avg, err := e.Store.AverageEntry(ctx, order.Symbol)
	if err != nil || !avg.IsPositive() || !order.Quantity.IsPositive() {
		return
	}
	price := order.Price
	if !price.IsPositive() && order.Quantity.IsPositive() {
		price = order.Notional.Div(order.Quantity)
	}
	pnl := price.Sub(avg).Mul(order.Quantity)
	ret, _ := price.Sub(avg).Div(avg).Float64()
	outcome := ledger.TradeOutcome{
		Strategy:      order.Strategy,
		Symbol:        order.Symbol,
		RealizedPnL:   pnl.String(),
		EntryNotional: avg.Mul(order.Quantity).String(),
		ReturnPct:     ret,
		ClosedAt:      order.FilledAt,
	}
	if err := e.Store.AppendTradeOutcome(ctx, outcome); err != nil {
		logger.Warnw("trade outcome not recorded", "symbol", order.Symbol, "err", err)
	}
}

func (e *Engine) recordSnapshot(ctx context.Context) error {
	snap, err := e.portfolioView(ctx)
	if err != nil {
		return err
	}
	return e.Store.AppendSnapshot(ctx, snap)
}

// maybeReallocate runs the capital reallocator on its cadence; ensemble
// mode only. Insufficient history keeps the current weights.
func (e *Engine) maybeReallocate(ctx context.Context) {
	if e.Reallocator == nil || e.Config.Decision.Mode != "ensemble" {
		return
	}
	if !e.lastRealloc.IsZero() && time.Since(e.lastRealloc) < e.Config.Realloc.Cadence() {
		return
	}
	e.lastRealloc = time.Now()

	lookback := time.Now().AddDate(0, 0, -e.Config.Realloc.LookbackDays)
	perf, err := e.Store.StrategyPerformanceSince(ctx, lookback)
	if err != nil {
		logger.Errorf("engine: loading strategy performance failed: %v", err)
		return
	}
	current, err := e.Store.StrategyWeights(ctx)
	if err != nil {
		logger.Errorf("engine: loading strategy weights failed: %v", err)
		return
	}
	updated, err := e.Reallocator.Rebalance(current, perf)
	if err != nil {
		if errors.Is(err, realloc.ErrInsufficientHistory) {
			logger.Infof("engine: reallocation skipped: %v", err)
		} else {
			logger.Errorf("engine: reallocation failed: %v", err)
		}
		return
	}
	if err := e.Store.SaveStrategyWeights(ctx, updated); err != nil {
		logger.Errorf("engine: saving strategy weights failed: %v", err)
	}
}
