// Package decision produces the cycle's raw target allocation, either
// from the built-in strategy ensemble or from an external allocator
// speaking the percent-based JSON wire format.
package decision

import (
	"context"

	"drift/internal/market"
	"drift/internal/types"
)

// Source proposes a raw target allocation for one cycle. The proposal is
// not trusted: the caller always runs it through the normalizer before
// planning against it.
type Source interface {
	Name() string
	Decide(ctx context.Context, snap market.Snapshot, portfolio types.PortfolioSnapshot) (types.TargetAllocation, error)
}
