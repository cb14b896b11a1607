package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(c.Trading.Mode); err != nil {
		return err
	}
	if err := c.Decision.validate(); err != nil {
		return err
	}
	if err := c.Realloc.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	switch t.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("trading.mode must be paper or live, got %q", t.Mode)
	}
	if t.MaxPositionPct > 1 {
		return fmt.Errorf("trading.max_position_pct must be <= 1, got %v", t.MaxPositionPct)
	}
	if t.CashReservePct >= 1 {
		return fmt.Errorf("trading.cash_reserve_pct must be < 1, got %v", t.CashReservePct)
	}
	if t.MaxPositionPct+t.CashReservePct > 1 {
		return fmt.Errorf("trading.max_position_pct + cash_reserve_pct exceed 1")
	}
	if t.DustUSD > t.MinTradeUSD {
		return fmt.Errorf("trading.dust_usd (%v) cannot exceed min_trade_usd (%v)", t.DustUSD, t.MinTradeUSD)
	}
	return nil
}

func (e *ExchangeConfig) validate(mode string) error {
	if e.Name != "binance" {
		return fmt.Errorf("exchange.name %q not supported", e.Name)
	}
	// Paper mode only reads public market data; credentials are required for
	// live order placement.
	if mode == "live" {
		if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.APISecret) == "" {
			return fmt.Errorf("live mode requires exchange.api_key and exchange.api_secret")
		}
	}
	return nil
}

func (d *DecisionConfig) validate() error {
	switch d.Mode {
	case "ensemble", "external":
	default:
		return fmt.Errorf("decision.mode must be ensemble or external, got %q", d.Mode)
	}
	if d.ActivationThreshold >= 1 {
		return fmt.Errorf("decision.activation_threshold must be < 1")
	}
	if d.Mode == "external" && strings.TrimSpace(d.ExternalCommand) == "" {
		return fmt.Errorf("decision.external_command required in external mode")
	}
	return nil
}

func (r *ReallocConfig) validate() error {
	if r.LearningRate > 1 {
		return fmt.Errorf("realloc.learning_rate must be <= 1, got %v", r.LearningRate)
	}
	if r.FloorPct >= r.MaxPct {
		return fmt.Errorf("realloc.floor_pct must be below max_pct")
	}
	return nil
}
