// Package app wires configuration into the running services: the
// exchange gateway, the scheduling engine and the HTTP API.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	tpcfg "tempo/internal/config"
	"tempo/internal/engine"
	"tempo/internal/logger"
	"tempo/internal/store/execlog"
	apihttp "tempo/internal/transport/http/api"
)

type App struct {
	cfg     *tpcfg.Config
	server  *apihttp.Server
	engine  *engine.Engine
	journal *execlog.Store

	cancelLoops context.CancelFunc
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *tpcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP until ctx is cancelled, then tears down the engine
// loops and closes the journal.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("http server not initialized")
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	err := group.Wait()
	a.Close()
	return err
}

// Close stops all engine loops and releases the journal.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancelLoops != nil {
		a.cancelLoops()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warnf("closing execution journal: %v", err)
		}
	}
}

// Engine exposes the scheduling engine (for testing and replay harnesses).
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}
