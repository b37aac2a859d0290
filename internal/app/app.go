package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/envgridgo/internal/config"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/dag"
	"github.com/vk/envgridgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	model    *config.Model

	httpServer *http.Server

	mu    sync.RWMutex
	graph *dag.Graph
}

// NewApp constructs a fully initialized App: it configures an isolated
// logger, loads the matrix through the given loader, and registers the
// handler modules (the built-in set unless the caller supplies its own).
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.MatrixPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules()
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All handler modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		model:    model,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

func (a *App) setGraph(g *dag.Graph) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph = g
}

func (a *App) currentGraph() *dag.Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}
