package config

import "time"

// Config is the main configuration carrier for drift.
type Config struct {
	App      AppConfig      `toml:"app"`
	Trading  TradingConfig  `toml:"trading"`
	Exchange ExchangeConfig `toml:"exchange"`
	Market   MarketConfig   `toml:"market"`
	Decision DecisionConfig `toml:"decision"`
	Executor ExecutorConfig `toml:"executor"`
	Realloc  ReallocConfig  `toml:"realloc"`
	Store    StoreConfig    `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
	Paused   bool   `toml:"paused"`
}

// TradingConfig controls the reconciliation and sizing rules.
type TradingConfig struct {
	Mode            string   `toml:"mode"`             // "paper" | "live"
	QuoteCurrency   string   `toml:"quote_currency"`   // e.g. USDT
	InitialCapital  float64  `toml:"initial_capital"`  // paper mode seed
	MinTradeUSD     float64  `toml:"min_trade_usd"`    // intents below this are dropped
	DustUSD         float64  `toml:"dust_usd"`         // deltas below this emit no intent
	MaxPositionPct  float64  `toml:"max_position_pct"` // single-asset cap, 0..1
	CashReservePct  float64  `toml:"cash_reserve_pct"` // minimum cash fraction, 0..1
	IntervalMinutes int      `toml:"interval_minutes"` // cycle cadence
	MaxCycles       int      `toml:"max_cycles"`       // 0 = run forever
	Symbols         []string `toml:"symbols"`          // explicit universe; empty = top volume
	UniverseSize    int      `toml:"universe_size"`
}

type ExchangeConfig struct {
	Name        string `toml:"name"` // only "binance" today
	APIKey      string `toml:"api_key"`
	APISecret   string `toml:"api_secret"`
	RESTBaseURL string `toml:"rest_base_url"`
	TimeoutSecs int    `toml:"timeout_seconds"`
}

func (e ExchangeConfig) HTTPTimeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

type MarketConfig struct {
	CandleLimit         int `toml:"candle_limit"`
	FetchTimeoutSecs    int `toml:"fetch_timeout_seconds"`    // per-symbol
	CollectDeadlineSecs int `toml:"collect_deadline_seconds"` // whole universe
	MinQuorum           int `toml:"min_quorum"`               // usable symbols required per cycle
}

func (m MarketConfig) FetchTimeout() time.Duration {
	return time.Duration(m.FetchTimeoutSecs) * time.Second
}

func (m MarketConfig) CollectDeadline() time.Duration {
	return time.Duration(m.CollectDeadlineSecs) * time.Second
}

type DecisionConfig struct {
	Mode                string  `toml:"mode"` // "ensemble" | "external"
	ActivationThreshold float64 `toml:"activation_threshold"`
	ExternalCommand     string  `toml:"external_command"` // allocator subprocess, external mode only
}

type ExecutorConfig struct {
	FillTimeoutSecs  int `toml:"fill_timeout_seconds"`
	PollIntervalSecs int `toml:"poll_interval_seconds"`
}

func (e ExecutorConfig) FillTimeout() time.Duration {
	return time.Duration(e.FillTimeoutSecs) * time.Second
}

func (e ExecutorConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalSecs) * time.Second
}

// ReallocConfig drives the capital reallocator cadence and bounds.
type ReallocConfig struct {
	CadenceHours  int     `toml:"cadence_hours"`
	LearningRate  float64 `toml:"learning_rate"`
	FloorPct      float64 `toml:"floor_pct"`
	MaxPct        float64 `toml:"max_pct"`
	MinTrades     int     `toml:"min_trades"` // observed trades before a strategy's record is trusted
	LookbackDays  int     `toml:"lookback_days"`
}

func (r ReallocConfig) Cadence() time.Duration {
	return time.Duration(r.CadenceHours) * time.Hour
}

type StoreConfig struct {
	Path string `toml:"path"`
}
