package app

import (
	"context"
	"fmt"

	"tempo/internal/closer"
	tpcfg "tempo/internal/config"
	"tempo/internal/engine"
	"tempo/internal/gateway/binance"
	"tempo/internal/logger"
	"tempo/internal/preset"
	"tempo/internal/store"
	"tempo/internal/store/execlog"
	apihttp "tempo/internal/transport/http/api"
)

// AppBuilder assembles the application dependency graph step by step.
type AppBuilder struct {
	cfg *tpcfg.Config
}

func NewAppBuilder(cfg *tpcfg.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	gw, err := binance.New(binance.Config{
		APIKey:       cfg.Binance.APIKey,
		APISecret:    cfg.Binance.APISecret,
		RESTBaseURL:  cfg.Binance.RESTBaseURL,
		HTTPTimeout:  cfg.Binance.HTTPTimeout(),
		ProxyEnabled: cfg.Binance.ProxyEnabled,
		RESTProxyURL: cfg.Binance.RESTProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init binance gateway: %w", err)
	}
	logger.Infof("Exchange gateway ready: %s (%s)", gw.Name(), cfg.Binance.RESTBaseURL)

	st := store.New()
	cl := closer.New(gw)

	journal, err := buildJournal(cfg.History)
	if err != nil {
		return nil, err
	}

	loopCtx, cancelLoops := context.WithCancel(ctx)
	eng := engine.New(loopCtx, gw, st, cl, journal, engine.Settings{
		Poll:        cfg.Scheduler.Poll(),
		FinePoll:    cfg.Scheduler.FinePoll(),
		FineWindow:  cfg.Scheduler.FineWindow(),
		Grace:       cfg.Scheduler.Grace(),
		FillPoll:    cfg.Scheduler.FillPoll(),
		FillTimeout: cfg.Scheduler.FillTimeout(),
		MinNotional: cfg.Scheduler.MinNotional,
		MinLead:     cfg.Scheduler.MinLead(),
		MaxLead:     cfg.Scheduler.MaxLead(),
	})

	presets, err := buildPresets(cfg.Presets)
	if err != nil {
		cancelLoops()
		return nil, err
	}

	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Router: apihttp.NewRouter(eng, cl, presets, journal),
	})
	if err != nil {
		cancelLoops()
		return nil, fmt.Errorf("failed to init http server: %w", err)
	}
	logger.Infof("HTTP API listening on %s", server.Addr())

	return &App{
		cfg:         cfg,
		server:      server,
		engine:      eng,
		journal:     journal,
		cancelLoops: cancelLoops,
	}, nil
}

func buildJournal(cfg tpcfg.HistoryConfig) (*execlog.Store, error) {
	if cfg.Path == "" {
		logger.Infof("Execution journal disabled (no history path configured)")
		return nil, nil
	}
	journal, err := execlog.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open execution journal: %w", err)
	}
	logger.Infof("Execution journal at %s", cfg.Path)
	return journal, nil
}

func buildPresets(cfg tpcfg.PresetsConfig) (*preset.Registry, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	reg, err := preset.NewRegistry(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	return reg, nil
}
