package decision

import (
	"context"
	"fmt"
	"math"
	"strings"

	"drift/internal/logger"
	"drift/internal/market"
	"drift/internal/types"

	"github.com/tidwall/gjson"
)

// wire-format tolerance: percents must sum to 100 within this much.
const percentSumTolerance = 0.5

// Provider returns a raw allocation response for the given snapshot.
// Anything that can produce the wire format fits: an LLM gateway, a
// remote allocator service, a replay file.
type Provider interface {
	ProposeAllocation(ctx context.Context, snap market.Snapshot, portfolio types.PortfolioSnapshot) (string, error)
}

// External adapts a Provider's percent-based wire output into an internal
// target allocation.
type External struct {
	Provider Provider
}

func (e *External) Name() string { return "external" }

func (e *External) Decide(ctx context.Context, snap market.Snapshot, portfolio types.PortfolioSnapshot) (types.TargetAllocation, error) {
	raw, err := e.Provider.ProposeAllocation(ctx, snap, portfolio)
	if err != nil {
		return types.TargetAllocation{}, fmt.Errorf("allocator call failed: %w", err)
	}
	return ParseAllocation(raw)
}

// ParseAllocation coerces, validates and converts one wire-format
// response. Percents become fractions; repeated symbols accumulate.
func ParseAllocation(raw string) (types.TargetAllocation, error) {
	coerced, err := CoerceAllocationJSON(raw)
	if err != nil {
		return types.TargetAllocation{}, err
	}
	if err := ValidateAllocationJSON(coerced); err != nil {
		return types.TargetAllocation{}, err
	}

	parsed := gjson.Parse(coerced)
	out := types.TargetAllocation{
		Weights:      map[string]float64{},
		CashFraction: parsed.Get("usdt_percent").Float() / 100,
		Outlook:      parsed.Get("market_outlook").String(),
		Conviction:   parsed.Get("conviction").String(),
		Reasoning:    map[string]string{},
	}

	sum := parsed.Get("usdt_percent").Float()
	parsed.Get("allocations").ForEach(func(_, item gjson.Result) bool {
		symbol := strings.ToUpper(strings.TrimSpace(item.Get("symbol").String()))
		percent := item.Get("percent").Float()
		if symbol == "" {
			return true
		}
		if _, seen := out.Weights[symbol]; !seen {
			out.Symbols = append(out.Symbols, symbol)
		}
		out.Weights[symbol] += percent / 100
		if reason := strings.TrimSpace(item.Get("reasoning").String()); reason != "" {
			out.Reasoning[symbol] = reason
		}
		sum += percent
		return true
	})

	if math.Abs(sum-100) > percentSumTolerance {
		return types.TargetAllocation{}, fmt.Errorf("allocation percents sum to %.2f, want 100", sum)
	}
	logger.Debugf("external allocation parsed: %d assets, cash %.1f%%", len(out.Symbols), out.CashFraction*100)
	return out, nil
}
