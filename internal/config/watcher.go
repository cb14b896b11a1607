package config

import (
	"sync"

	"drift/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Watcher re-reads the config file on change and applies the subset of
// settings that are safe to flip at runtime: log level and the trading
// pause flag. Everything else requires a restart.
type Watcher struct {
	mu     sync.RWMutex
	paused bool
}

// Watch starts watching path. The returned Watcher exposes the live pause
// flag; the engine checks it at each cycle boundary.
func Watch(path string, initial *Config) *Watcher {
	w := &Watcher{paused: initial.App.Paused}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("config watch disabled, read failed: %v", err)
		return w
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
			dc.TagName = "toml"
			dc.WeaklyTypedInput = true
		}); err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		cfg.App.applyDefaults()
		logger.SetLevel(cfg.App.LogLevel)
		w.mu.Lock()
		changed := w.paused != cfg.App.Paused
		w.paused = cfg.App.Paused
		w.mu.Unlock()
		if changed {
			logger.Infof("config reload: paused=%v log_level=%s", cfg.App.Paused, cfg.App.LogLevel)
		}
	})
	v.WatchConfig()
	return w
}

// Paused reports whether trading is administratively paused.
func (w *Watcher) Paused() bool {
	if w == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paused
}
