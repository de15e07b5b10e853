package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"shelfwise/internal/config"
	"shelfwise/internal/engine"
	"shelfwise/internal/extract"
	"shelfwise/internal/history"
	"shelfwise/internal/llm"
	"shelfwise/internal/model"
	"shelfwise/internal/mover"
	"shelfwise/internal/notify"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openHistory returns the audit store, or nil when persistence is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.History.Path == "" {
		return nil, nil
	}
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}

// buildEngine wires the full pipeline. A non-nil watcherFactory overrides
// the default fsnotify watcher; scan mode passes a no-op factory so no
// filesystem watches are registered. The returned cleanup closes the
// history store.
func buildEngine(cfg *config.Config, logger *slog.Logger, watcherFactory engine.WatcherFactory) (*engine.Engine, func(), error) {
	classifier, err := llm.NewClassifier(llm.Config{
		Backend:           llm.Backend(cfg.Backend.Kind),
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		Model:             cfg.Backend.Model,
		Temperature:       cfg.Backend.Temperature,
		MaxTokens:         cfg.Backend.MaxTokens,
		MaxRetries:        cfg.Backend.MaxRetries,
		RetryDelay:        cfg.Backend.RetryDelay,
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	store, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}

	deps := engine.Deps{
		Classifier: classifier,
		Extractor:  extract.NewTextExtractor(),
		Mover:      mover.New(logger),
		Notifier:   notify.NewService(cfg.Notify.Topic, cfg.Notify.Timeout),
		Logger:     logger,
		NewWatcher: watcherFactory,
	}
	if store != nil {
		deps.Audit = store
	}

	eng := engine.New(engine.Config{
		Debounce: cfg.Engine.Debounce,
		Cooldown: cfg.Engine.Cooldown,
		LogLimit: cfg.Engine.LogLimit,
	}, deps)

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	return eng, cleanup, nil
}

type noopWatcher struct{}

func (noopWatcher) Start() error { return nil }
func (noopWatcher) Stop()        {}

func noopWatcherFactory(model.FolderConfig, func([]model.WatchEvent)) engine.FolderWatcher {
	return noopWatcher{}
}
