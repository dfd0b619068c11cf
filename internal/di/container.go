// Package di wires pyre's components together, both for one-shot CLI
// commands and for the fx-managed daemon.
package di

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pyrestack/pyre/internal/config"
	"github.com/pyrestack/pyre/internal/logging"
	"github.com/pyrestack/pyre/pkg/deps"
	"github.com/pyrestack/pyre/pkg/engine"
	"github.com/pyrestack/pyre/pkg/scheduler"
	"github.com/pyrestack/pyre/pkg/store"
)

// Runtime bundles the opened components for CLI commands.
type Runtime struct {
	Config    *config.Config
	Logger    *zap.SugaredLogger
	Index     *store.Index
	Store     *store.Store
	Installer *deps.Installer
	Engine    *engine.Engine
}

// OpenRuntime loads config and opens every component a CLI command may
// need. The caller must Close it.
func OpenRuntime() (*Runtime, error) {
	cfg, err := config.LoadConfig(config.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}

	index, err := store.OpenIndex(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg, index, logger)
	if err != nil {
		index.Close()
		return nil, err
	}

	installer := deps.NewInstaller(cfg.Installer, cfg.Paths.DepsDir, logger)
	eng := engine.New(st, installer, cfg.Engine, logger)

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Index:     index,
		Store:     st,
		Installer: installer,
		Engine:    eng,
	}, nil
}

// Close releases the runtime's resources.
func (r *Runtime) Close() error {
	_ = r.Logger.Sync()
	return r.Index.Close()
}

// Module provides the daemon's components to fx.
var Module = fx.Options(
	fx.Provide(
		func() (*config.Config, error) {
			return config.LoadConfig(config.ConfigPath)
		},
		func() (*zap.SugaredLogger, error) {
			return logging.NewLogger(config.LogLevel)
		},
		provideIndex,
		store.New,
		provideInstaller,
		provideEngine,
		provideScheduler,
	),
)

func provideIndex(lc fx.Lifecycle, cfg *config.Config) (*store.Index, error) {
	index, err := store.OpenIndex(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return index.Close()
		},
	})
	return index, nil
}

func provideInstaller(cfg *config.Config, logger *zap.SugaredLogger) *deps.Installer {
	return deps.NewInstaller(cfg.Installer, cfg.Paths.DepsDir, logger)
}

func provideEngine(st *store.Store, installer *deps.Installer, cfg *config.Config, logger *zap.SugaredLogger) *engine.Engine {
	return engine.New(st, installer, cfg.Engine, logger)
}

func provideScheduler(lc fx.Lifecycle, cfg *config.Config, eng *engine.Engine, logger *zap.SugaredLogger) *scheduler.Scheduler {
	sched := scheduler.New(cfg.Paths.SchedulesFile, eng, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return sched.Start()
		},
		OnStop: func(context.Context) error {
			sched.Stop()
			return nil
		},
	})
	return sched
}
