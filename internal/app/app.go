package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/dispatchgrid/internal/config"
	"github.com/vk/dispatchgrid/internal/ctxlog"
	"github.com/vk/dispatchgrid/internal/depgraph"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	validator  *depgraph.Validator
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with the grid loaded and the dependency
// validator populated. A failure to load or apply configuration is a fatal
// startup error and panics; the CLI entrypoint recovers it into a clean
// exit message.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.GridPath)
	if err != nil {
		panic(fmt.Errorf("failed to load grid configuration: %w", err))
	}
	logger.Debug("Grid configuration loaded into unified model.")

	validator, err := buildValidator(ctx, model)
	if err != nil {
		panic(fmt.Errorf("failed to build dependency graph: %w", err))
	}
	logger.Debug("Dependency validator populated.",
		"tasks", len(model.Tasks), "edges", len(model.Dependencies))

	return &App{
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		model:     model,
		validator: validator,
	}
}

// Validator returns the populated dependency validator. This is primarily
// for testing.
func (a *App) Validator() *depgraph.Validator {
	return a.validator
}

// buildValidator creates a strict validator over the declared tasks and
// feeds it every declared dependency edge.
func buildValidator(ctx context.Context, model *config.Model) (*depgraph.Validator, error) {
	opts := []depgraph.Option{
		depgraph.WithOracle(depgraph.NewFixedOracle(model.TaskIDs()...)),
		depgraph.WithStrictReferences(),
	}
	if model.Coordinator != nil {
		opts = append(opts,
			depgraph.WithSoftCycles(model.Coordinator.IncludeSoftCycles),
			depgraph.WithVerdictRetention(model.Coordinator.VerdictRetention),
		)
	}

	validator := depgraph.New(opts...)
	for _, dep := range model.Dependencies {
		_, err := validator.AddEdge(ctx, depgraph.Edge{
			TaskID:      dep.TaskID,
			DependsOn:   dep.DependsOn,
			Kind:        depgraph.Kind(dep.Kind),
			Description: dep.Description,
			Metadata:    dep.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("declaring dependency %s -> %s: %w", dep.DependsOn, dep.TaskID, err)
		}
	}

	return validator, nil
}
