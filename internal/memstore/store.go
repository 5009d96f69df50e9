// Package memstore provides an ephemeral, thread-safe, in-memory
// implementation of the leasestore contracts.
//
// It backs local runs and tests. Lease records live in a sync.Map because
// the workload is write-heavy with independent keys: every coordinator
// hammers its own (agent, task) slot while observers occasionally read
// across all of them, which is exactly the access pattern sync.Map is
// optimized for. For distributed deployments use a remote store client
// (e.g. httpstore) instead.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/vk/dispatchgrid/internal/leasestore"
)

// Store is an in-memory lease store. Most-recent-write-wins per
// (agent, task) pair. It implements both leasestore.HeartbeatStore and the
// optional leasestore.Renewer capability.
type Store struct {
	leases sync.Map // Key: "agentID/taskID", Value: leasestore.LeaseRecord
	events sync.Map // Key: agentID, Value: []leasestore.HealthEvent

	// mu serializes read-modify-write sequences (Renew, event append)
	// that a plain sync.Map store cannot make atomic on its own.
	mu sync.Mutex
}

// New creates a new, empty in-memory lease store.
func New() *Store {
	return &Store{}
}

func leaseKey(agentID, taskID string) string {
	return agentID + "/" + taskID
}

// UpsertHeartbeat stores the record, replacing any previous one for the
// same (agent, task) pair.
func (s *Store) UpsertHeartbeat(_ context.Context, rec leasestore.LeaseRecord) error {
	s.leases.Store(leaseKey(rec.AgentID, rec.TaskID), rec)
	return nil
}

// Renew re-anchors the lease's TTL window at the current time, preserving
// the record's status. A renewal without a prior heartbeat creates a
// working record, so a freshly claimed task is covered either way.
func (s *Store) Renew(_ context.Context, agentID, taskID string, ttl time.Duration) error {
	key := leaseKey(agentID, taskID)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := leasestore.LeaseRecord{
		AgentID: agentID,
		TaskID:  taskID,
		Status:  leasestore.StatusWorking,
	}
	if prev, ok := s.leases.Load(key); ok {
		rec = prev.(leasestore.LeaseRecord)
	}
	rec.LastSeen = time.Now()
	rec.TTL = ttl

	s.leases.Store(key, rec)
	return nil
}

// Lease retrieves the current record for the pair.
func (s *Store) Lease(agentID, taskID string) (leasestore.LeaseRecord, bool) {
	rec, ok := s.leases.Load(leaseKey(agentID, taskID))
	if !ok {
		return leasestore.LeaseRecord{}, false
	}
	return rec.(leasestore.LeaseRecord), true
}

// Leases returns a snapshot of all current records.
func (s *Store) Leases() []leasestore.LeaseRecord {
	var out []leasestore.LeaseRecord
	s.leases.Range(func(_, value any) bool {
		out = append(out, value.(leasestore.LeaseRecord))
		return true
	})
	return out
}

// LogHealthEvent records the event in memory, making the store usable as a
// leasestore.HealthSink for local runs.
func (s *Store) LogHealthEvent(_ context.Context, event leasestore.HealthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []leasestore.HealthEvent
	if prev, ok := s.events.Load(event.AgentID); ok {
		history = prev.([]leasestore.HealthEvent)
	}
	s.events.Store(event.AgentID, append(history, event))
	return nil
}

// HealthEvents returns the events recorded for an agent, oldest first.
func (s *Store) HealthEvents(agentID string) []leasestore.HealthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if history, ok := s.events.Load(agentID); ok {
		return append([]leasestore.HealthEvent(nil), history.([]leasestore.HealthEvent)...)
	}
	return nil
}
