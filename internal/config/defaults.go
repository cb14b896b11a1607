package config

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9982"
	defaultTradingMode     = "paper"
	defaultQuoteCurrency   = "USDT"
	defaultInitialCapital  = 250.0
	defaultMinTradeUSD     = 10.0
	defaultDustUSD         = 1.0
	defaultMaxPositionPct  = 0.25
	defaultCashReservePct  = 0.05
	defaultIntervalMinutes = 60
	defaultUniverseSize    = 50
	defaultExchangeName    = "binance"
	defaultExchangeREST    = "https://api.binance.com"
	defaultExchangeTimeout = 15
	defaultCandleLimit     = 100
	defaultFetchTimeout    = 10
	defaultCollectDeadline = 45
	defaultMinQuorum       = 1
	defaultDecisionMode    = "ensemble"
	defaultActivation      = 0.1
	defaultFillTimeout     = 30
	defaultPollInterval    = 2
	defaultCadenceHours    = 24
	defaultLearningRate    = 0.1
	defaultFloorPct        = 0.05
	defaultMaxPct          = 0.50
	defaultMinTrades       = 5
	defaultLookbackDays    = 7
	defaultStorePath       = "data/drift.db"
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Trading.applyDefaults()
	c.Exchange.applyDefaults()
	c.Market.applyDefaults()
	c.Decision.applyDefaults()
	c.Executor.applyDefaults()
	c.Realloc.applyDefaults()
	c.Store.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (t *TradingConfig) applyDefaults() {
	if t.Mode == "" {
		t.Mode = defaultTradingMode
	}
	if t.QuoteCurrency == "" {
		t.QuoteCurrency = defaultQuoteCurrency
	}
	if t.InitialCapital <= 0 {
		t.InitialCapital = defaultInitialCapital
	}
	if t.MinTradeUSD <= 0 {
		t.MinTradeUSD = defaultMinTradeUSD
	}
	if t.DustUSD <= 0 {
		t.DustUSD = defaultDustUSD
	}
	if t.MaxPositionPct <= 0 {
		t.MaxPositionPct = defaultMaxPositionPct
	}
	if t.CashReservePct <= 0 {
		t.CashReservePct = defaultCashReservePct
	}
	if t.IntervalMinutes <= 0 {
		t.IntervalMinutes = defaultIntervalMinutes
	}
	if t.UniverseSize <= 0 {
		t.UniverseSize = defaultUniverseSize
	}
}

func (e *ExchangeConfig) applyDefaults() {
	if e.Name == "" {
		e.Name = defaultExchangeName
	}
	if e.RESTBaseURL == "" {
		e.RESTBaseURL = defaultExchangeREST
	}
	if e.TimeoutSecs <= 0 {
		e.TimeoutSecs = defaultExchangeTimeout
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.CandleLimit <= 0 {
		m.CandleLimit = defaultCandleLimit
	}
	if m.FetchTimeoutSecs <= 0 {
		m.FetchTimeoutSecs = defaultFetchTimeout
	}
	if m.CollectDeadlineSecs <= 0 {
		m.CollectDeadlineSecs = defaultCollectDeadline
	}
	if m.MinQuorum <= 0 {
		m.MinQuorum = defaultMinQuorum
	}
}

func (d *DecisionConfig) applyDefaults() {
	if d.Mode == "" {
		d.Mode = defaultDecisionMode
	}
	if d.ActivationThreshold <= 0 {
		d.ActivationThreshold = defaultActivation
	}
}

func (e *ExecutorConfig) applyDefaults() {
	if e.FillTimeoutSecs <= 0 {
		e.FillTimeoutSecs = defaultFillTimeout
	}
	if e.PollIntervalSecs <= 0 {
		e.PollIntervalSecs = defaultPollInterval
	}
}

func (r *ReallocConfig) applyDefaults() {
	if r.CadenceHours <= 0 {
		r.CadenceHours = defaultCadenceHours
	}
	if r.LearningRate <= 0 {
		r.LearningRate = defaultLearningRate
	}
	if r.FloorPct <= 0 {
		r.FloorPct = defaultFloorPct
	}
	if r.MaxPct <= 0 {
		r.MaxPct = defaultMaxPct
	}
	if r.MinTrades <= 0 {
		r.MinTrades = defaultMinTrades
	}
	if r.LookbackDays <= 0 {
		r.LookbackDays = defaultLookbackDays
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.Path == "" {
		s.Path = defaultStorePath
	}
}
