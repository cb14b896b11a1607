// Package allocation validates proposed target allocations and aggregates
// ensemble signals into them. The normalizer is the trust boundary: every
// decision source, external or internal, passes through it before planning.
package allocation

import (
	"errors"
	"fmt"
	"math"

	"drift/internal/logger"
	"drift/internal/types"
)

// ErrInvalidAllocation marks a target allocation that cannot be recovered
// by clamping. The cycle that produced it is skipped.
var ErrInvalidAllocation = errors.New("invalid allocation")

// Normalizer enforces the allocation invariants.
type Normalizer struct {
	MaxPositionPct float64 // single-asset cap, 0..1
	CashReservePct float64 // minimum cash fraction, 0..1
}

// Normalize validates raw and returns a copy satisfying all invariants:
// no negative weights, weights + cash sum to 1 within tolerance, no weight
// above the cap and cash at or above the reserve. Cap violations are
// clamped, not rejected: the excess moves to cash. A reserve shortfall is
// recovered by scaling weights down proportionally.
func (n Normalizer) Normalize(raw types.TargetAllocation) (types.TargetAllocation, error) {
	out := types.TargetAllocation{
		Weights:      make(map[string]float64, len(raw.Weights)),
		Symbols:      append([]string(nil), raw.Symbols...),
		CashFraction: raw.CashFraction,
		Outlook:      raw.Outlook,
		Conviction:   raw.Conviction,
		Reasoning:    raw.Reasoning,
		Attribution:  raw.Attribution,
	}
	sum := raw.CashFraction
	if raw.CashFraction < 0 {
		return out, fmt.Errorf("%w: negative cash fraction %v", ErrInvalidAllocation, raw.CashFraction)
	}
	for _, sym := range out.Symbols {
		w := raw.Weights[sym]
		if w < 0 {
			return out, fmt.Errorf("%w: negative weight %v for %s", ErrInvalidAllocation, w, sym)
		}
		out.Weights[sym] = w
		sum += w
	}
	if len(out.Symbols) != len(raw.Weights) {
		return out, fmt.Errorf("%w: symbol order list does not match weights", ErrInvalidAllocation)
	}
	if math.Abs(sum-1.0) > types.Tolerance {
		return out, fmt.Errorf("%w: weights and cash sum to %v", ErrInvalidAllocation, sum)
	}

	// Clamp over-cap positions; the excess is redistributed to cash so an
	// otherwise usable decision is never discarded.
	for _, sym := range out.Symbols {
		if w := out.Weights[sym]; w > n.MaxPositionPct {
			excess := w - n.MaxPositionPct
			out.Weights[sym] = n.MaxPositionPct
			out.CashFraction += excess
			logger.Warnw("allocation weight clamped",
				"symbol", sym, "requested", w, "cap", n.MaxPositionPct)
		}
	}

	// Enforce the cash reserve by scaling invested weights down.
	if out.CashFraction < n.CashReservePct {
		invested := 1.0 - out.CashFraction
		target := 1.0 - n.CashReservePct
		if invested > 0 {
			scale := target / invested
			for _, sym := range out.Symbols {
				out.Weights[sym] *= scale
			}
		}
		logger.Warnw("cash reserve enforced",
			"requested_cash", out.CashFraction, "reserve", n.CashReservePct)
		out.CashFraction = n.CashReservePct
	}

	return out, n.revalidate(out)
}

func (n Normalizer) revalidate(a types.TargetAllocation) error {
	sum := a.CashFraction
	for _, sym := range a.Symbols {
		w := a.Weights[sym]
		if w < 0 {
			return fmt.Errorf("%w: negative weight after normalization for %s", ErrInvalidAllocation, sym)
		}
		if w > n.MaxPositionPct+types.Tolerance {
			return fmt.Errorf("%w: weight %v above cap after normalization for %s", ErrInvalidAllocation, w, sym)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > types.Tolerance {
		return fmt.Errorf("%w: sum %v after normalization", ErrInvalidAllocation, sum)
	}
	return nil
}
