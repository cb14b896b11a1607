package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"drift/internal/logger"
	"drift/internal/market"
	"drift/internal/types"
)

// CommandProvider shells out to an external allocator. The command gets
// a JSON context document on stdin and must print a wire-format
// allocation on stdout.
type CommandProvider struct {
	Command string
	Timeout time.Duration
}

// allocatorContext is the stdin document for external allocators.
type allocatorContext struct {
	CollectedAt time.Time          `json:"collected_at"`
	FearGreed   market.FearGreed   `json:"fear_greed"`
	Assets      []allocatorAsset   `json:"assets"`
	Portfolio   allocatorPortfolio `json:"portfolio"`
}

type allocatorAsset struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Change24h  float64 `json:"change_24h"`
	RSI        float64 `json:"rsi"`
	MACDSignal string  `json:"macd_signal"`
	Volume24h  float64 `json:"volume_24h"`
}

type allocatorPortfolio struct {
	Cash       string                      `json:"cash"`
	TotalValue string                      `json:"total_value"`
	PnLPct     float64                     `json:"pnl_pct"`
	Holdings   map[string]allocatorHolding `json:"holdings"`
}

type allocatorHolding struct {
	Quantity   string `json:"quantity"`
	QuoteValue string `json:"quote_value"`
	AvgEntry   string `json:"avg_entry"`
}

func (p *CommandProvider) ProposeAllocation(ctx context.Context, snap market.Snapshot, portfolio types.PortfolioSnapshot) (string, error) {
	if strings.TrimSpace(p.Command) == "" {
		return "", fmt.Errorf("external allocator command not configured")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input, err := json.Marshal(buildContext(snap, portfolio))
	if err != nil {
		return "", err
	}

	parts := strings.Fields(p.Command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("allocator command failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		logger.Debugf("allocator stderr: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func buildContext(snap market.Snapshot, portfolio types.PortfolioSnapshot) allocatorContext {
	doc := allocatorContext{
		CollectedAt: snap.CollectedAt,
		FearGreed:   snap.FearGreed,
		Portfolio: allocatorPortfolio{
			Cash:       portfolio.Cash.String(),
			TotalValue: portfolio.TotalValue.String(),
			PnLPct:     portfolio.PnLPct,
			Holdings:   map[string]allocatorHolding{},
		},
	}
	for _, sym := range snap.Universe {
		brief, ok := snap.Brief(sym)
		if !ok {
			continue
		}
		doc.Assets = append(doc.Assets, allocatorAsset{
			Symbol:     brief.Symbol,
			Price:      brief.Price,
			Change24h:  brief.Change24h,
			RSI:        brief.RSI,
			MACDSignal: brief.MACDSignal,
			Volume24h:  brief.Volume24h,
		})
	}
	for sym, h := range portfolio.Holdings {
		doc.Portfolio.Holdings[sym] = allocatorHolding{
			Quantity:   h.Quantity.String(),
			QuoteValue: h.QuoteValue.String(),
			AvgEntry:   h.AvgEntry.String(),
		}
	}
	return doc
}
