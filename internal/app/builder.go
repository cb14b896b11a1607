package app

import (
	"context"
	"fmt"

	"drift/internal/allocation"
	"drift/internal/config"
	"drift/internal/decision"
	"drift/internal/engine"
	"drift/internal/executor"
	"drift/internal/gateway/binance"
	"drift/internal/gateway/exchange"
	"drift/internal/gateway/paper"
	"drift/internal/ledger"
	"drift/internal/logger"
	"drift/internal/market"
	"drift/internal/plan"
	"drift/internal/realloc"
	"drift/internal/strategy"
	statushttp "drift/internal/transport/http/status"
	"drift/internal/types"

	"github.com/shopspring/decimal"
)

// build assembles the dependency graph by hand, bottom up: market data,
// exchange, ledger, decision source, then the engine.
func build(cfg *config.Config, cfgPath string) (*App, error) {
	store, err := ledger.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger failed: %w", err)
	}

	source := binance.New(binance.Config{
		APIKey:      cfg.Exchange.APIKey,
		APISecret:   cfg.Exchange.APISecret,
		RESTBaseURL: cfg.Exchange.RESTBaseURL,
		Quote:       cfg.Trading.QuoteCurrency,
		HTTPTimeout: cfg.Exchange.HTTPTimeout(),
	})

	var ex exchange.Exchange
	switch cfg.Trading.Mode {
	case "live":
		ex = source
	default:
		ex = paper.New(cfg.Trading.QuoteCurrency,
			decimal.NewFromFloat(cfg.Trading.InitialCapital), source)
	}
	logger.Infof("exchange: %s (mode=%s)", ex.Name(), cfg.Trading.Mode)

	collector := market.Collector{
		Source:          source,
		Sentiment:       market.NewAlternativeMe(),
		CandleLimit:     cfg.Market.CandleLimit,
		FetchTimeout:    cfg.Market.FetchTimeout(),
		CollectDeadline: cfg.Market.CollectDeadline(),
		MinQuorum:       cfg.Market.MinQuorum,
	}

	strategies := []strategy.Strategy{
		strategy.Momentum{},
		strategy.Sentiment{},
		strategy.Contrarian{},
	}
	if n := float64(len(strategies)); cfg.Realloc.MaxPct > 0 && cfg.Realloc.MaxPct*n < 1 {
		return nil, fmt.Errorf("realloc.max_pct %.2f cannot cover a full allocation across %d strategies",
			cfg.Realloc.MaxPct, len(strategies))
	}
	if err := seedStrategyWeights(store, strategies); err != nil {
		return nil, err
	}

	var src decision.Source
	switch cfg.Decision.Mode {
	case "external":
		src = &decision.External{
			Provider: &decision.CommandProvider{Command: cfg.Decision.ExternalCommand},
		}
	default:
		src = &decision.Ensemble{
			Strategies: strategies,
			Weights:    store,
			Aggregator: allocation.Aggregator{
				ActivationThreshold: cfg.Decision.ActivationThreshold,
				CashReservePct:      cfg.Trading.CashReservePct,
			},
		}
	}

	sequencer := &executor.Sequencer{
		Exchange: ex,
		Quote:    cfg.Trading.QuoteCurrency,
		Filter: plan.Filter{
			MinTradeUSD: decimal.NewFromFloat(cfg.Trading.MinTradeUSD),
		},
		FillTimeout:  cfg.Executor.FillTimeout(),
		PollInterval: cfg.Executor.PollInterval(),
	}

	eng := &engine.Engine{
		Config:    cfg,
		Pause:     config.Watch(cfgPath, cfg),
		Market:    source,
		Collector: collector,
		Source:    src,
		Normalizer: allocation.Normalizer{
			MaxPositionPct: cfg.Trading.MaxPositionPct,
			CashReservePct: cfg.Trading.CashReservePct,
		},
		Planner:   plan.Planner{DustUSD: decimal.NewFromFloat(cfg.Trading.DustUSD)},
		Sequencer: sequencer,
		Store:     store,
		Reallocator: &realloc.Reallocator{
			LearningRate: cfg.Realloc.LearningRate,
			FloorPct:     cfg.Realloc.FloorPct,
			MaxPct:       cfg.Realloc.MaxPct,
			MinTrades:    cfg.Realloc.MinTrades,
		},
	}

	status, err := statushttp.NewServer(cfg.App.HTTPAddr, store, eng)
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, engine: eng, store: store, status: status}, nil
}

// seedStrategyWeights gives each strategy an equal fraction when the
// ledger has no weights yet. Restarts keep the learned weights.
func seedStrategyWeights(store *ledger.Store, strategies []strategy.Strategy) error {
	ctx := context.Background()
	existing, err := store.StrategyWeights(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || len(strategies) == 0 {
		return nil
	}
	equal := 1.0 / float64(len(strategies))
	weights := make([]types.StrategyWeight, 0, len(strategies))
	for _, s := range strategies {
		weights = append(weights, types.StrategyWeight{Strategy: s.Name(), Fraction: equal})
	}
	logger.Infof("seeding %d strategy weights at %.4f each", len(weights), equal)
	return store.SaveStrategyWeights(ctx, weights)
}
