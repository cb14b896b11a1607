// Package exchange defines the capability interface the execution
// sequencer drives. Implementations: paper (simulated fills) and binance
// (live spot).
package exchange

import (
	"context"

	"drift/internal/types"
)

type Exchange interface {
	Name() string

	// Balances returns free balances per asset, the single source of truth
	// at every cycle start.
	Balances(ctx context.Context) (Balances, error)

	// CancelOpenOrders cancels open orders previously placed by this
	// system, identified by its client-order-id namespace. Orders placed
	// by anything else are never touched.
	CancelOpenOrders(ctx context.Context, symbols []string) (int, error)

	// SubmitOrder places a market order for the given quote notional and
	// returns the resulting order, which may still be pending.
	SubmitOrder(ctx context.Context, req OrderRequest) (types.Order, error)

	// OrderStatus reports the current status of a previously submitted
	// order.
	OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderStatus, error)

	// LastPrice returns the last traded price for symbol in the quote
	// currency.
	LastPrice(ctx context.Context, symbol string) (float64, error)
}
