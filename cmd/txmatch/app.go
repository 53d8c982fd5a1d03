package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/config"
	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/llm"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/pattern"
	"github.com/Veraticus/txmatch/internal/service"
	"github.com/Veraticus/txmatch/internal/storage"
)

// app holds what every command needs: configuration, the chart and the store.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	chart  *model.ChartOfAccounts
	store  service.Store
}

// engineOptions tunes the engine built for one command.
type engineOptions struct {
	client     llm.Client // overrides the configured provider
	progress   llm.ProgressFunc
	threshold  *float64
	disableLLM bool
}

// loadApp resolves configuration from viper and opens the chart and store.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	return newApp(ctx, cfg, slog.Default())
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	chart, err := storage.LoadChartFile(cfg.ChartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart of accounts: %w", err)
	}
	logger.Debug("Loaded chart of accounts", "path", cfg.ChartPath, "accounts", chart.Len())

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, chart: chart, store: store}, nil
}

// openStore opens the configured rules and mappings backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		db, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Debug("Connected to database", "path", cfg.DatabasePath)
		return db, nil
	default:
		fs, err := storage.NewFileStore(cfg.RulesPath, cfg.MappingsPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open rule files: %w", err)
		}
		return fs, nil
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close store", "error", err)
	}
}

// runStore returns the run history store when the backend keeps one.
func (a *app) runStore() (service.RunStore, bool) {
	rs, ok := a.store.(service.RunStore)
	return rs, ok
}

// ruleMatcher builds Pass 1 from the stored rules and mappings.
func (a *app) ruleMatcher(ctx context.Context) (*pattern.RuleMatcher, error) {
	rules, err := a.store.LoadRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	mapping, err := a.store.LoadMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}

	for _, p := range pattern.ValidateRules(a.chart, rules) {
		a.logger.Warn("Skipping rule", "rule", p.String())
	}
	for _, key := range pattern.ValidateMapping(a.chart, mapping) {
		a.logger.Warn("Skipping mapping with unknown account", "description", key)
	}

	opts := []pattern.Option{
		pattern.WithLogger(a.logger),
		pattern.WithMappingConfidence(a.cfg.Matching.MappingConfidence),
	}
	if a.cfg.Matching.Scorer == config.ScorerAccount {
		opts = append(opts, pattern.WithScorer(pattern.NewAccountScorer(a.chart)))
	}
	return pattern.NewRuleMatcher(a.chart, rules, mapping, opts...)
}

// llmClient creates the configured provider client, or nil when the fallback
// pass is off or has no API key.
func (a *app) llmClient() (llm.Client, error) {
	c := a.cfg.LLM
	if !c.Enabled {
		return nil, nil
	}
	if c.APIKey() == "" {
		a.logger.Warn("No LLM API key configured, fallback pass disabled", "provider", c.Provider)
		return nil, nil
	}
	return llm.NewClient(llm.Config{
		Provider:    c.Provider,
		APIKey:      c.APIKey(),
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}, a.logger)
}

func (a *app) fallbackConfig(progress llm.ProgressFunc) llm.MatcherConfig {
	mc := llm.DefaultMatcherConfig()
	mc.Logger = a.logger
	mc.Progress = progress
	mc.CacheTTL = a.cfg.LLM.CacheTTL
	mc.CallTimeout = a.cfg.LLM.Timeout
	mc.Concurrency = a.cfg.LLM.Concurrency
	mc.RateLimit = a.cfg.LLM.RateLimit
	mc.Retry.MaxAttempts = a.cfg.LLM.MaxRetries
	if a.cfg.LLM.RetryDelay > 0 {
		mc.Retry.InitialDelay = a.cfg.LLM.RetryDelay
	}
	return mc
}

// newEngine wires Pass 1 and, when available, the LLM fallback pass.
func (a *app) newEngine(ctx context.Context, opts engineOptions) (*engine.MatchingEngine, *pattern.RuleMatcher, error) {
	rm, err := a.ruleMatcher(ctx)
	if err != nil {
		return nil, nil, err
	}

	threshold := a.cfg.Matching.Threshold
	if opts.threshold != nil {
		threshold = *opts.threshold
	}
	eng, err := engine.NewWithConfig(engine.Config{Logger: a.logger, ConfidenceThreshold: threshold}, rm)
	if err != nil {
		return nil, nil, common.NewUserError("Invalid matching threshold", err)
	}

	if opts.disableLLM {
		return eng, rm, nil
	}
	client := opts.client
	if client == nil {
		if client, err = a.llmClient(); err != nil {
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}
	if client == nil {
		return eng, rm, nil
	}

	fm, err := llm.NewFallbackMatcher(client, a.chart, a.fallbackConfig(opts.progress))
	if err != nil {
		return nil, nil, err
	}
	eng.AddFallback(fm)
	return eng, rm, nil
}
