package exchange

import (
	"strings"
	"time"

	"drift/internal/types"

	"github.com/shopspring/decimal"
)

// ClientIDPrefix namespaces every order this system places, so stale-order
// cancellation can tell its own orders from anything else on the account.
const ClientIDPrefix = "drift-"

// Owned reports whether a client order id belongs to this system.
func Owned(clientID string) bool {
	return strings.HasPrefix(strings.TrimSpace(clientID), ClientIDPrefix)
}

// Balances maps asset symbol to free quantity.
type Balances struct {
	Assets    map[string]decimal.Decimal
	UpdatedAt time.Time
}

// Free returns the free quantity for asset, zero if absent.
func (b Balances) Free(asset string) decimal.Decimal {
	if b.Assets == nil {
		return decimal.Zero
	}
	if q, ok := b.Assets[asset]; ok {
		return q
	}
	return decimal.Zero
}

// OrderRequest is a market order sized in quote currency.
type OrderRequest struct {
	Symbol    string // base asset, e.g. "DOGE"
	Side      types.Side
	Notional  decimal.Decimal // quote currency amount
	Quantity  decimal.Decimal // base quantity, used for sells when set
	ClientID  string          // must carry ClientIDPrefix
	Reasoning string
}
