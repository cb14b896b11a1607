// Package app wires configuration into a running drift instance: the
// cycle engine plus the status HTTP server.
package app

import (
	"context"
	"fmt"

	"drift/internal/config"
	"drift/internal/engine"
	"drift/internal/ledger"
	statushttp "drift/internal/transport/http/status"

	"golang.org/x/sync/errgroup"
)

// App owns application-level orchestration: build dependencies, start
// the engine and the HTTP surface, shut both down together.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *ledger.Store
	status *statushttp.Server
}

// NewApp builds the application object without starting it. cfgPath is
// watched for runtime pause/log-level changes.
func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return build(cfg, cfgPath)
}

// Run starts the engine and the status server and blocks until both
// stop. Cancelling ctx stops them after the cycle in flight completes.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()

	group, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.status != nil {
		group.Go(func() error {
			if err := a.status.Start(ctx); err != nil {
				return fmt.Errorf("status server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		// A finished cycle budget shuts the whole app down, status
		// server included.
		defer cancel()
		return a.engine.Run(ctx)
	})
	return group.Wait()
}

// Engine exposes the cycle engine (for tests and replay harnesses).
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}
