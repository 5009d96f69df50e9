package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/vk/dispatchgrid/internal/ctxlog"
	"github.com/vk/dispatchgrid/internal/depgraph"
	"github.com/vk/dispatchgrid/internal/httpstore"
	"github.com/vk/dispatchgrid/internal/lease"
	"github.com/vk/dispatchgrid/internal/leasestore"
	"github.com/vk/dispatchgrid/internal/memstore"
	"github.com/vk/dispatchgrid/internal/socketsink"
)

// Run executes the main application flow: validate the dependency graph,
// report the verdict, and in agent mode keep the claim's lease alive until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer(ctx)
		defer a.closeHealthCheckServer(ctx)
	}

	verdict := a.validator.Validate(ctx)
	stats := a.validator.Statistics(ctx)
	a.reportVerdict(verdict, stats)

	if !verdict.Valid {
		return fmt.Errorf("dependency graph is invalid: %d cycle(s) detected", len(verdict.Cycles))
	}

	if a.config.AgentID == "" {
		a.logger.Debug("No agent claim configured, validation-only run finished.")
		return nil
	}

	return a.runAgent(ctx)
}

// reportVerdict prints the validation outcome for humans.
func (a *App) reportVerdict(verdict depgraph.Verdict, stats depgraph.Statistics) {
	if verdict.Valid {
		color.New(color.FgGreen).Fprintf(a.outW, "✔ dependency graph valid (fingerprint %.12s)\n", verdict.Fingerprint)
	} else {
		color.New(color.FgRed, color.Bold).Fprintf(a.outW, "✘ dependency graph invalid: %d cycle(s)\n", len(verdict.Cycles))
		for _, cycle := range verdict.Cycles {
			color.New(color.FgRed).Fprintf(a.outW, "  cycle: %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
		}
	}

	fmt.Fprintf(a.outW, "edges: %d (%d hard, %d soft), tasks with dependents: %d, orphaned: %d\n",
		stats.TotalEdges, stats.HardEdges, stats.SoftEdges, stats.TasksWithDependents, stats.OrphanedEdges)
}

// runAgent starts a lease coordinator for the configured claim and keeps it
// running until the context is cancelled.
func (a *App) runAgent(ctx context.Context) error {
	var (
		store   leasestore.HeartbeatStore
		renewer leasestore.Renewer
	)

	if a.config.StoreURL != "" {
		remote := httpstore.New(a.config.StoreURL, 0)
		defer remote.Close()
		store, renewer = remote, remote
		a.logger.Info("Using remote lease store.", "url", a.config.StoreURL)
	} else {
		local := memstore.New()
		store, renewer = local, local
		a.logger.Warn("No store URL configured; leases are held in process memory only.")
	}

	var sink leasestore.HealthSink
	if a.config.HealthSinkURL != "" {
		s, err := socketsink.New(ctx, a.config.HealthSinkURL, "/health")
		if err != nil {
			return fmt.Errorf("connecting health sink: %w", err)
		}
		defer s.Close()
		sink = s
	}

	opts := lease.Options{}
	if a.model.Coordinator != nil {
		opts.HeartbeatInterval = a.model.Coordinator.HeartbeatInterval
		opts.RenewInterval = a.model.Coordinator.RenewInterval
		opts.TTL = a.model.Coordinator.TTL
	}

	coordinator := lease.New(store, renewer, sink, opts)
	claim := lease.Claim{AgentID: a.config.AgentID, TaskID: a.config.TaskID}

	if err := coordinator.Start(ctx, claim); err != nil {
		return fmt.Errorf("starting lease coordinator: %w", err)
	}
	a.logger.Info("🫀 Liveness tracking started.", "agentID", claim.AgentID, "taskID", claim.TaskID)

	<-ctx.Done()

	a.logger.Info("Shutting down liveness tracking...")
	coordinator.Stop()
	a.logger.Info("🏁 Lease released cleanly.")

	return nil
}
