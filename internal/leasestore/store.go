// Package leasestore defines the contracts between the lease/heartbeat
// coordinator and the external state store it writes liveness into. The
// coordinator only ever writes; reading leases back and deciding when a
// stale one should be reclaimed is the observer's business.
package leasestore

import (
	"context"
	"time"
)

// Status is the liveness state carried by a lease record.
type Status string

const (
	// StatusWorking marks an agent actively executing its claimed task.
	StatusWorking Status = "working"
	// StatusIdle marks a cleanly released claim. It is always the last
	// write of a clean shutdown; a crashed agent never writes it.
	StatusIdle Status = "idle"
)

// LeaseRecord is the time-bounded claim one agent holds on one task. An
// observer infers abandonment purely from (Status, LastSeen, TTL): a
// working record whose LastSeen+TTL is in the past was never released.
type LeaseRecord struct {
	AgentID  string        `json:"agent_id"`
	TaskID   string        `json:"task_id"`
	LastSeen time.Time     `json:"last_seen"`
	Status   Status        `json:"status"`
	TTL      time.Duration `json:"ttl"`
}

// ExpiresAt is the instant after which the lease may be treated as abandoned.
func (r LeaseRecord) ExpiresAt() time.Time {
	return r.LastSeen.Add(r.TTL)
}

// HeartbeatStore persists lease records, most-recent-write-wins per
// (agent, task) pair.
type HeartbeatStore interface {
	UpsertHeartbeat(ctx context.Context, rec LeaseRecord) error
}

// Renewer is the optional lease-renewal capability. A store that lacks it
// is refresh-only: the coordinator falls back to re-upserting the full
// record with a fresh TTL window. The choice between the two is made once
// at coordinator construction, never probed at runtime.
type Renewer interface {
	Renew(ctx context.Context, agentID, taskID string, ttl time.Duration) error
}

// Check is one named pass/fail probe inside a health report.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ResourceUsage is a point-in-time snapshot of the reporting process.
type ResourceUsage struct {
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64 `json:"heap_sys_bytes"`
}

// HealthEvent is the health report emitted alongside each heartbeat.
type HealthEvent struct {
	AgentID    string        `json:"agent_id"`
	Status     Status        `json:"status"`
	Checks     []Check       `json:"checks"`
	Resources  ResourceUsage `json:"resources"`
	ReportedAt time.Time     `json:"reported_at"`
}

// HealthSink consumes health events. Fire-and-forget from the emitting
// coordinator's perspective; a failing sink never disturbs liveness tracking.
type HealthSink interface {
	LogHealthEvent(ctx context.Context, event HealthEvent) error
}
