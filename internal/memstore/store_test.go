package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dispatchgrid/internal/leasestore"
)

func TestUpsertHeartbeat(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := leasestore.LeaseRecord{
		AgentID:  "agent-1",
		TaskID:   "task-1",
		LastSeen: time.Now(),
		Status:   leasestore.StatusWorking,
		TTL:      30 * time.Second,
	}
	require.NoError(t, s.UpsertHeartbeat(ctx, rec))

	got, ok := s.Lease("agent-1", "task-1")
	require.True(t, ok)
	assert.Equal(t, rec, got)

	t.Run("most recent write wins", func(t *testing.T) {
		rec.Status = leasestore.StatusIdle
		require.NoError(t, s.UpsertHeartbeat(ctx, rec))

		got, ok := s.Lease("agent-1", "task-1")
		require.True(t, ok)
		assert.Equal(t, leasestore.StatusIdle, got.Status)
	})

	t.Run("pairs are independent", func(t *testing.T) {
		other := rec
		other.TaskID = "task-2"
		other.Status = leasestore.StatusWorking
		require.NoError(t, s.UpsertHeartbeat(ctx, other))

		assert.Len(t, s.Leases(), 2)
	})
}

func TestRenew(t *testing.T) {
	ctx := context.Background()

	t.Run("extends an existing lease without touching status", func(t *testing.T) {
		s := New()
		old := time.Now().Add(-time.Minute)
		require.NoError(t, s.UpsertHeartbeat(ctx, leasestore.LeaseRecord{
			AgentID:  "agent-1",
			TaskID:   "task-1",
			LastSeen: old,
			Status:   leasestore.StatusWorking,
			TTL:      10 * time.Second,
		}))

		require.NoError(t, s.Renew(ctx, "agent-1", "task-1", 30*time.Second))

		got, ok := s.Lease("agent-1", "task-1")
		require.True(t, ok)
		assert.Equal(t, leasestore.StatusWorking, got.Status)
		assert.Equal(t, 30*time.Second, got.TTL)
		assert.True(t, got.LastSeen.After(old), "renewal must re-anchor the ttl window at now")
		assert.True(t, got.ExpiresAt().After(time.Now()))
	})

	t.Run("creates a working record when none exists", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Renew(ctx, "agent-2", "task-9", 30*time.Second))

		got, ok := s.Lease("agent-2", "task-9")
		require.True(t, ok)
		assert.Equal(t, leasestore.StatusWorking, got.Status)
	})
}

func TestHealthEvents(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.LogHealthEvent(ctx, leasestore.HealthEvent{AgentID: "agent-1", Status: leasestore.StatusWorking}))
	require.NoError(t, s.LogHealthEvent(ctx, leasestore.HealthEvent{AgentID: "agent-1", Status: leasestore.StatusIdle}))
	require.NoError(t, s.LogHealthEvent(ctx, leasestore.HealthEvent{AgentID: "agent-2", Status: leasestore.StatusWorking}))

	events := s.HealthEvents("agent-1")
	require.Len(t, events, 2)
	assert.Equal(t, leasestore.StatusWorking, events[0].Status)
	assert.Equal(t, leasestore.StatusIdle, events[1].Status)

	assert.Len(t, s.HealthEvents("agent-2"), 1)
	assert.Empty(t, s.HealthEvents("agent-3"))
}
