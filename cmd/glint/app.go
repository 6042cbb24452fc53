package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/config"
	"github.com/kestrelsoft/glint/internal/prefs"
	"github.com/kestrelsoft/glint/internal/provider"
	"github.com/kestrelsoft/glint/internal/rank"
	"github.com/kestrelsoft/glint/internal/removal"
	"github.com/kestrelsoft/glint/internal/suggest"
)

// app bundles everything a command builds from configuration. close tears
// the pieces down in dependency order.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	prefs  *prefs.Store
	model  *suggest.Model

	removals *removal.SQLite
	files    *provider.Files
	lua      *rank.Lua
}

// buildApp loads configuration and wires the model, preference store,
// removal index, ranker and providers together. daemon selects the logger
// profile.
func buildApp(daemon bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(daemon)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	prefStore := prefs.New(
		prefs.WithPath(cfg.PrefsPath()),
		prefs.WithLogger(logger.Named("prefs")),
	)
	if err := prefStore.Load(); err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	removals, err := removal.NewSQLite(cfg.RemovalDBPath(), removal.WithLogger(logger.Named("removal")))
	if err != nil {
		return nil, fmt.Errorf("open removal index: %w", err)
	}

	var (
		ranker suggest.Ranker
		lua    *rank.Lua
	)
	if cfg.Ranker.Script != "" {
		lua, err = rank.NewLua(cfg.Ranker.Script, rank.WithLuaLogger(logger.Named("rank")))
		if err != nil {
			removals.Close()
			return nil, fmt.Errorf("load ranker script: %w", err)
		}
		ranker = lua
	} else {
		ranker = rank.NewTimeWindow()
	}

	model := suggest.New(prefStore, removals,
		suggest.WithLogger(logger.Named("suggest")),
		suggest.WithRanker(ranker),
		suggest.WithDisplayBudget(cfg.DisplayBudget),
		suggest.WithNormalTimeout(time.Duration(cfg.Fetch.NormalTimeout)),
		suggest.WithPostLoginTimeout(time.Duration(cfg.Fetch.PostLoginTimeout)),
	)

	clients, files, err := buildClients(model, cfg, logger.Named("provider"))
	if err != nil {
		model.Close()
		if lua != nil {
			lua.Close()
		}
		removals.Close()
		return nil, err
	}
	model.SetClientAndInit(clients)

	return &app{
		cfg:      cfg,
		logger:   logger,
		prefs:    prefStore,
		model:    model,
		removals: removals,
		files:    files,
		lua:      lua,
	}, nil
}

// buildClients constructs the configured providers. When nothing is
// configured it falls back to canned demo data so a bare `glint serve`
// still produces suggestions.
func buildClients(model *suggest.Model, cfg *config.Config, logger *zap.Logger) (*provider.Clients, *provider.Files, error) {
	p := cfg.Providers
	if p.Calendar.AgendaPath == "" && p.Files.WatchDir == "" && p.Tabs.SessionPath == "" &&
		p.Weather.Endpoint == "" && p.ReleaseNotes.FeedURL == "" {
		logger.Warn("no providers configured, serving demo data")
		return provider.Demo(model), nil, nil
	}

	clients := &provider.Clients{}
	if p.Calendar.AgendaPath != "" {
		clients.Calendar = provider.NewCalendar(model, p.Calendar.AgendaPath, logger)
	}
	var files *provider.Files
	if p.Files.WatchDir != "" {
		files = provider.NewFiles(model, p.Files.WatchDir, p.Files.MaxItems, logger)
		if err := files.Start(); err != nil {
			return nil, nil, fmt.Errorf("start file watcher: %w", err)
		}
		clients.FileSuggest = files
	}
	if p.Tabs.SessionPath != "" {
		clients.RecentTabs = provider.NewTabs(model, p.Tabs.SessionPath, logger)
	}
	if p.Weather.Endpoint != "" {
		clients.Weather = provider.NewWeather(model, p.Weather.Endpoint, time.Duration(p.Weather.Timeout), logger)
	}
	if p.ReleaseNotes.FeedURL != "" {
		clients.ReleaseNotes = provider.NewReleaseNotes(model, p.ReleaseNotes.FeedURL, time.Duration(p.ReleaseNotes.Timeout), logger)
	}
	return clients, files, nil
}

// close shuts the application down. The model goes first so late provider
// deliveries are dropped rather than queued.
func (a *app) close() {
	a.model.Close()
	if a.files != nil {
		if err := a.files.Close(); err != nil {
			a.logger.Warn("close file watcher", zap.Error(err))
		}
	}
	if a.lua != nil {
		if err := a.lua.Close(); err != nil {
			a.logger.Warn("close ranker", zap.Error(err))
		}
	}
	if err := a.removals.Close(); err != nil {
		a.logger.Warn("close removal index", zap.Error(err))
	}
	_ = a.logger.Sync()
}
