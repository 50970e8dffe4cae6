package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/dictquery/internal/cache"
	"github.com/conduit-lang/dictquery/internal/cli/config"
	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/engine"
	"github.com/conduit-lang/dictquery/internal/executor"
	"github.com/conduit-lang/dictquery/internal/logging"
)

// app holds everything a command needs to answer queries
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *dictionary.Registry
	exec     *executor.SQLExecutor
	cache    cache.Cache
	engine   *engine.Engine
}

// loadConfig reads the config file and applies the persistent flag overrides
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.dictionary != "" {
		cfg.Dictionary.Path = flags.dictionary
	}
	if flags.driver != "" {
		if _, err := executor.DialectForDriver(flags.driver); err != nil {
			return nil, err
		}
		cfg.Database.Driver = flags.driver
	}
	if flags.dsn != "" {
		cfg.Database.DSN = flags.dsn
	}
	if flags.logLevel != "" {
		if _, err := logging.ParseLevel(flags.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// newApp loads the configuration and dictionary and builds the engine. Commands
// that never touch the database pass withDB=false and get an engine without an executor.
func newApp(ctx context.Context, flags *globalFlags, withDB bool) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	a.registry, err = dictionary.LoadFile(cfg.Dictionary.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	stats := a.registry.GetStats()
	logger.Debug("dictionary loaded",
		zap.String("path", cfg.Dictionary.Path),
		zap.Int("tables", stats.Tables),
		zap.Int("containers", stats.Containers),
		zap.Int("references", stats.References),
	)

	provider, err := cfg.Access.Provider()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid access rules: %w", err)
	}

	a.cache, err = cache.New(ctx, cfg.Cache)
	if err != nil {
		// dependents are recomputed without a cache
		logger.Warn("cache unavailable", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		a.cache = nil
	}

	opts := engine.Options{
		Pages:    cfg.Pagination.Manager(),
		Cache:    a.cache,
		CacheTTL: cfg.Cache.TTL,
		Access:   provider,
		Logger:   logger,
	}

	if !withDB {
		a.engine = engine.New(a.registry, nil, opts)
		return a, nil
	}

	a.exec, err = executor.Open(ctx, cfg.Database)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine.New(a.registry, a.exec, opts)
	return a, nil
}

// Close releases the database and cache connections
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	if a.exec != nil {
		if err := a.exec.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
