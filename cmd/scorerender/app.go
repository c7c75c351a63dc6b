package main

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/config"
	"github.com/alnah/go-scorerender/internal/logging"
	"github.com/alnah/go-scorerender/internal/notation"
)

// app is the set of services a command runs against.
type app struct {
	dig.In

	Config   *config.Config
	Log      *zap.Logger
	Registry *notation.Registry
	Renderer *scorerender.Renderer
	Pool     *scorerender.Pool
}

// loadSettings resolves the effective configuration.
// Precedence: CLI flags > env vars > config file > defaults.
func loadSettings(common *commonFlags, engine *engineFlags, request *requestFlags, env *Environment) (*config.Config, error) {
	ids := notation.Default().IDs()
	warnUnknownEnvVars(env.Stderr, env.Environ(), ids)
	ec := loadEnvConfig(env.Getenv, ids)

	cfg := config.DefaultConfig()
	name := common.config
	if name == "" {
		name = ec.ConfigPath
	}
	if name != "" {
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := applyEnvConfig(ec, cfg); err != nil {
		return nil, err
	}
	mergeFlags(common, engine, request, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildContainer registers config, logger, registry, renderer and pool.
func buildContainer(cfg *config.Config, env *Environment) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) (*zap.Logger, error) {
		return logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(notation.Default); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, reg *notation.Registry, log *zap.Logger) (*scorerender.Renderer, error) {
		return newRenderer(cfg, reg, log, env.RendererOptions)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, r *scorerender.Renderer) *scorerender.Pool {
		return scorerender.NewPool(r, scorerender.ResolvePoolSize(cfg.Render.Workers))
	}); err != nil {
		return nil, err
	}
	return container, nil
}

// newRenderer translates the configuration into renderer options.
func newRenderer(cfg *config.Config, reg *notation.Registry, log *zap.Logger, extra []scorerender.Option) (*scorerender.Renderer, error) {
	cacheDir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	opts := []scorerender.Option{
		scorerender.WithCacheDir(cacheDir),
		scorerender.WithTempDir(cfg.Temp.Dir),
		scorerender.WithKeepTemp(cfg.Temp.Keep),
		scorerender.WithConvertBin(cfg.Convert.Bin),
		scorerender.WithTimeout(timeout),
		scorerender.WithRegistry(reg),
		scorerender.WithLogger(log),
	}
	if cfg.Render.MaxWidth != 0 {
		opts = append(opts, scorerender.WithDefaultWidth(cfg.Render.MaxWidth))
	}
	for id, nc := range cfg.Notations {
		if nc.Bin != "" {
			opts = append(opts, scorerender.WithProgram(id, nc.Bin))
		}
		if nc.MagicFile != "" {
			opts = append(opts, scorerender.WithMagicFile(id, nc.MagicFile))
		}
		if nc.URL != "" {
			opts = append(opts, scorerender.WithEndpoint(id, nc.URL))
		}
	}
	return scorerender.NewRenderer(append(opts, extra...)...)
}

// withApp builds the services for cfg and runs fn with them.
func withApp(cfg *config.Config, env *Environment, fn func(a app) error) error {
	container, err := buildContainer(cfg, env)
	if err != nil {
		return err
	}

	var runErr error
	if err := container.Invoke(func(a app) {
		defer func() { _ = a.Log.Sync() }()
		runErr = fn(a)
	}); err != nil {
		// Constructor failures reach us wrapped in dig's own errors.
		return dig.RootCause(err)
	}
	return runErr
}
