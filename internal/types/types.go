// Package types holds the core domain model shared by the allocation,
// planning, execution and ledger packages.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status is final. A terminal order is
// append-only history; only a later cancellation may still be recorded.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

type SignalDirection string

const (
	StrongBuy  SignalDirection = "strong_buy"
	Buy        SignalDirection = "buy"
	Hold       SignalDirection = "hold"
	Sell       SignalDirection = "sell"
	StrongSell SignalDirection = "strong_sell"
)

// Strength maps a direction to its numeric weight in [-2, 2].
func (d SignalDirection) Strength() float64 {
	switch d {
	case StrongBuy:
		return 2.0
	case Buy:
		return 1.0
	case Sell:
		return -1.0
	case StrongSell:
		return -2.0
	}
	return 0
}

// Signal is one strategy's directional view on one asset.
type Signal struct {
	Strategy   string
	Symbol     string
	Direction  SignalDirection
	Confidence float64 // 0..1
	Reasoning  string
	CreatedAt  time.Time
}

// AssetHolding is one line of the balance sheet. Holdings are owned by the
// snapshot that contains them and replaced wholesale on every balance sync.
type AssetHolding struct {
	Symbol     string
	Quantity   decimal.Decimal
	AvgEntry   decimal.Decimal
	QuoteValue decimal.Decimal // quantity * last price, in quote currency
}

// TargetAllocation is a desired distribution of portfolio value.
// Weights are fractions in [0,1]; Weights + CashFraction must sum to 1
// within Tolerance. Symbols preserves the proposer's declaration order so
// downstream planning stays reproducible.
type TargetAllocation struct {
	Weights      map[string]float64
	Symbols      []string // insertion order of Weights keys
	CashFraction float64
	Outlook      string // bullish | neutral | bearish, informational
	Conviction   string // low | medium | high, informational
	Reasoning    map[string]string
	Attribution  map[string]string // symbol -> strategy credited with the call
}

// Tolerance for the sum-to-one invariant.
const Tolerance = 1e-6

// Weight returns the target weight for symbol, zero if absent.
func (a TargetAllocation) Weight(symbol string) float64 {
	if a.Weights == nil {
		return 0
	}
	return a.Weights[symbol]
}

// TradeIntent is a planned trade in quote-currency terms. Intents are
// transient: they either become Orders or are dropped by the filter.
type TradeIntent struct {
	Symbol    string
	Side      Side
	Notional  decimal.Decimal // quote currency
	Strategy  string
	Reasoning string
}

// Order is the durable record of one submission to the exchange.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notional  decimal.Decimal
	Status    OrderStatus
	Strategy  string
	Reasoning string
	CreatedAt time.Time
	FilledAt  time.Time
	Error     string
}

// PortfolioSnapshot is the end-of-cycle portfolio state. Immutable once
// created; the sequence of snapshots is the performance time series.
type PortfolioSnapshot struct {
	Timestamp  time.Time
	Cash       decimal.Decimal
	TotalValue decimal.Decimal
	Holdings   map[string]AssetHolding
	PnL        decimal.Decimal
	PnLPct     float64
}

// HoldingValue returns the quote value currently held in symbol.
func (p PortfolioSnapshot) HoldingValue(symbol string) decimal.Decimal {
	if h, ok := p.Holdings[symbol]; ok {
		return h.QuoteValue
	}
	return decimal.Zero
}

// StrategyWeight tracks one strategy's share of capital and its lifetime
// performance. Mutated only by the reallocator on its cadence.
type StrategyWeight struct {
	Strategy   string
	Fraction   float64
	LifetimePL decimal.Decimal
	WinRate    float64
	Trades     int
}
