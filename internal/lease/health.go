package lease

import (
	"context"
	"runtime"
	"time"

	"github.com/vk/dispatchgrid/internal/ctxlog"
	"github.com/vk/dispatchgrid/internal/leasestore"
)

// reportHealth emits a HealthEvent for the heartbeat that just ran. The
// heartbeat probe reflects whether the lease write landed; the sink itself
// is fire-and-forget and its failures only make it to the debug log.
func (c *Coordinator) reportHealth(ctx context.Context, status leasestore.Status, heartbeatErr error) {
	if c.sink == nil {
		return
	}

	probe := leasestore.Check{Name: "heartbeat", Passed: heartbeatErr == nil}
	if heartbeatErr != nil {
		probe.Detail = heartbeatErr.Error()
	}

	event := leasestore.HealthEvent{
		AgentID:    c.claim.AgentID,
		Status:     status,
		Checks:     []leasestore.Check{probe},
		Resources:  snapshotResources(),
		ReportedAt: time.Now(),
	}

	if err := c.sink.LogHealthEvent(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Debug("Health event dropped.",
			"agentID", c.claim.AgentID, "error", err)
	}
}

// snapshotResources samples the reporting process.
func snapshotResources() leasestore.ResourceUsage {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return leasestore.ResourceUsage{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		HeapSysBytes:   mem.HeapSys,
	}
}
