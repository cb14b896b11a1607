package binance

import "time"

type Config struct {
	APIKey      string
	APISecret   string
	RESTBaseURL string
	Quote       string // quote currency, e.g. "USDT"
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://api.binance.com"
	}
	if out.Quote == "" {
		out.Quote = "USDT"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	return out
}
