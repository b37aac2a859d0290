package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/envgridgo/internal/config"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/dag"
	"github.com/vk/envgridgo/internal/report"
)

// Run executes the matrix: resolve, build the graph, execute, report. The
// summary and (when configured) the JSON report are produced even when the
// run fails, before the failure is returned.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	envs, err := a.model.Matrix.Resolve(ctx, config.ResolveOptions{
		WorkDir: a.config.WorkDir,
		Only:    a.config.Environments,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve matrix: %w", err)
	}
	if a.config.IndexURL != "" {
		for _, env := range envs {
			env.IndexURL = a.config.IndexURL
		}
	}
	a.logger.Info("Matrix resolved.", "environments", len(envs))

	graph, err := dag.Build(ctx, envs, dag.BuildOptions{CommandTimeout: a.config.CommandTimeout})
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.setGraph(graph)
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	runID := uuid.NewString()
	startedAt := time.Now()
	a.logger.Info("Starting concurrent execution.", "run_id", runID, "workers", a.config.WorkerCount)

	exec := dag.NewExecutor(graph, a.config.WorkerCount, a.registry, a.config.FailFast)
	runErr := exec.Run(ctx)
	finishedAt := time.Now()
	a.logger.Info("Execution finished.", "run_id", runID, "duration", finishedAt.Sub(startedAt).String())

	runReport := report.FromGraph(graph, runID, startedAt, finishedAt)
	runReport.Summary(a.outW)

	if a.config.ReportPath != "" {
		if err := report.Write(a.config.ReportPath, runReport); err != nil {
			if runErr == nil {
				runErr = err
			} else {
				a.logger.Error("Failed to write run report.", "error", err)
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	return nil
}
