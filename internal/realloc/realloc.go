// Package realloc shifts ensemble capital between strategies based on
// realized performance, smoothly and on a fixed cadence.
package realloc

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"drift/internal/ledger"
	"drift/internal/logger"
	"drift/internal/types"
)

// ErrInsufficientHistory is returned when no strategy has enough realized
// trades to score; callers keep the current weights and try again next
// cadence.
var ErrInsufficientHistory = errors.New("insufficient trade history for reallocation")

// score component weights
const (
	winRateWeight = 0.4
	pnlWeight     = 0.4
	volumeWeight  = 0.2
)

// Reallocator nudges strategy fractions toward a performance-proportional
// target. Movement per cadence is bounded by the learning rate, every
// strategy keeps at least FloorPct, and no strategy exceeds MaxPct.
type Reallocator struct {
	LearningRate float64
	FloorPct     float64
	MaxPct       float64
	MinTrades    int
}

// Rebalance returns updated weights for the current ensemble. Strategies
// with fewer than MinTrades realized trades are not rescored and keep
// their fraction; if that covers every strategy, ErrInsufficientHistory.
func (r *Reallocator) Rebalance(current []types.StrategyWeight, perf []ledger.StrategyPerformance) ([]types.StrategyWeight, error) {
	if len(current) == 0 {
		return nil, errors.New("no strategies registered")
	}
	byName := make(map[string]ledger.StrategyPerformance, len(perf))
	for _, p := range perf {
		byName[p.Strategy] = p
	}

	out := make([]types.StrategyWeight, len(current))
	copy(out, current)
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })

	var eligible []int
	for i, w := range out {
		p, ok := byName[w.Strategy]
		if !ok || p.Trades < r.MinTrades {
			continue
		}
		eligible = append(eligible, i)
		out[i].WinRate = p.WinRate
		out[i].Trades = p.Trades
		out[i].LifetimePL = out[i].LifetimePL.Add(p.RealizedPnL)
	}
	if len(eligible) == 0 {
		return nil, ErrInsufficientHistory
	}

	scores := r.scoreEligible(out, eligible, byName)

	// The weight mass held by eligible strategies is redistributed among
	// them; under-sampled strategies keep their fraction untouched.
	var mass, total float64
	for _, i := range eligible {
		mass += out[i].Fraction
	}
	for _, i := range eligible {
		total += scores[i]
	}
	if err := r.boundsHold(len(eligible), mass); err != nil {
		return nil, err
	}

	for _, i := range eligible {
		target := mass / float64(len(eligible))
		if total > 0 {
			target = mass * scores[i] / total
		}
		moved := out[i].Fraction + r.LearningRate*(target-out[i].Fraction)
		if moved != out[i].Fraction {
			logger.Infow("strategy weight adjusted", "strategy", out[i].Strategy,
				"from", out[i].Fraction, "to", moved, "score", scores[i])
		}
		out[i].Fraction = moved
	}

	r.clampAndRenormalize(out, eligible, mass)
	return out, nil
}

// boundsHold rejects floor and cap settings that cannot contain the
// eligible weight mass. With n eligible strategies the clamp can only
// preserve the mass when n*floor <= mass <= n*cap; outside that range
// renormalization would silently break the sum-to-one invariant.
func (r *Reallocator) boundsHold(n int, mass float64) error {
	ceiling := r.MaxPct
	if ceiling <= 0 {
		ceiling = 1
	}
	if ceiling*float64(n) < mass-types.Tolerance {
		return fmt.Errorf("max_pct %.2f cannot hold weight mass %.2f across %d strategies", r.MaxPct, mass, n)
	}
	if r.FloorPct*float64(n) > mass+types.Tolerance {
		return fmt.Errorf("floor_pct %.2f exceeds weight mass %.2f across %d strategies", r.FloorPct, mass, n)
	}
	return nil
}

// scoreEligible combines win rate, cumulative percent return and trade
// volume into one score per eligible strategy. The percent return is
// centered on 0.5 so a flat strategy scores mid-range, and volume caps
// out at ten trades.
func (r *Reallocator) scoreEligible(ws []types.StrategyWeight, eligible []int, perf map[string]ledger.StrategyPerformance) map[int]float64 {
	scores := make(map[int]float64, len(eligible))
	for _, i := range eligible {
		p := perf[ws[i].Strategy]
		totalReturn := p.AvgReturn * float64(p.Trades)
		pnlScore := clamp01(0.5 + totalReturn*2)
		volScore := math.Min(float64(p.Trades)/10, 1)
		score := p.WinRate*winRateWeight + pnlScore*pnlWeight + volScore*volumeWeight
		if score < 0.01 {
			score = 0.01
		}
		scores[i] = score
	}
	return scores
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampAndRenormalize enforces the floor and cap on eligible strategies
// while preserving their combined mass. Out-of-bounds weights are pinned
// at the violated bound and the remainder rescaled over the free ones;
// rescaling can push another weight out of bounds, so iterate until no
// new pin appears.
func (r *Reallocator) clampAndRenormalize(ws []types.StrategyWeight, eligible []int, mass float64) {
	floor := r.FloorPct
	ceiling := r.MaxPct
	if ceiling <= 0 {
		ceiling = 1
	}
	pinned := make(map[int]float64, len(eligible))
	for iter := 0; iter <= len(eligible); iter++ {
		var freeSum, pinnedSum float64
		free := make([]int, 0, len(eligible))
		for _, i := range eligible {
			if v, ok := pinned[i]; ok {
				pinnedSum += v
				continue
			}
			free = append(free, i)
			freeSum += ws[i].Fraction
		}
		if len(free) == 0 {
			break
		}
		scale := 1.0
		if freeSum > 0 {
			scale = (mass - pinnedSum) / freeSum
		}
		changed := false
		for _, i := range free {
			v := ws[i].Fraction * scale
			switch {
			case v > ceiling:
				pinned[i] = ceiling
				changed = true
			case v < floor:
				pinned[i] = floor
				changed = true
			default:
				ws[i].Fraction = v
			}
		}
		if !changed {
			break
		}
	}
	for i, v := range pinned {
		ws[i].Fraction = v
	}
}
