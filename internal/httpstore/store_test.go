package httpstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dispatchgrid/internal/leasestore"
)

// captured is the last request the fake store saw.
type captured struct {
	method string
	path   string
	body   map[string]any
}

// newFakeStore runs an httptest server answering with the given status and
// payload, recording each request.
func newFakeStore(t *testing.T, status int, payload string) (*httptest.Server, *captured) {
	t.Helper()
	last := &captured{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.method = r.Method
		last.path = r.URL.Path

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &last.body))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, payload)
	}))
	t.Cleanup(server.Close)

	return server, last
}

func TestUpsertHeartbeat(t *testing.T) {
	ctx := context.Background()

	t.Run("acknowledged write", func(t *testing.T) {
		server, last := newFakeStore(t, http.StatusOK, `{"ok": true}`)
		store := New(server.URL, time.Second)
		defer store.Close()

		err := store.UpsertHeartbeat(ctx, leasestore.LeaseRecord{
			AgentID:  "agent-1",
			TaskID:   "task-42",
			LastSeen: time.Now(),
			Status:   leasestore.StatusWorking,
			TTL:      30 * time.Second,
		})
		require.NoError(t, err)

		assert.Equal(t, http.MethodPut, last.method)
		assert.Equal(t, "/leases/agent-1/task-42", last.path)
		assert.Equal(t, "working", last.body["status"])
		assert.Equal(t, float64(30000), last.body["ttl_ms"])
		assert.NotEmpty(t, last.body["last_seen"])
	})

	t.Run("server error with reason", func(t *testing.T) {
		server, _ := newFakeStore(t, http.StatusConflict, `{"error": "lease held by another agent"}`)
		store := New(server.URL, time.Second)
		defer store.Close()

		err := store.UpsertHeartbeat(ctx, leasestore.LeaseRecord{AgentID: "a", TaskID: "t"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lease held by another agent")
	})

	t.Run("unacknowledged 200 is still an error", func(t *testing.T) {
		server, _ := newFakeStore(t, http.StatusOK, `{}`)
		store := New(server.URL, time.Second)
		defer store.Close()

		err := store.UpsertHeartbeat(ctx, leasestore.LeaseRecord{AgentID: "a", TaskID: "t"})
		assert.Error(t, err)
	})
}

func TestRenew(t *testing.T) {
	ctx := context.Background()

	t.Run("acknowledged renewal", func(t *testing.T) {
		server, last := newFakeStore(t, http.StatusOK, `{"ok": true}`)
		store := New(server.URL, time.Second)
		defer store.Close()

		require.NoError(t, store.Renew(ctx, "agent-1", "task-42", 30*time.Second))

		assert.Equal(t, http.MethodPost, last.method)
		assert.Equal(t, "/leases/agent-1/task-42/renew", last.path)
		assert.Equal(t, float64(30000), last.body["ttl_ms"])
	})

	t.Run("unknown lease", func(t *testing.T) {
		server, _ := newFakeStore(t, http.StatusNotFound, `{"error": "no such lease"}`)
		store := New(server.URL, time.Second)
		defer store.Close()

		err := store.Renew(ctx, "agent-1", "task-42", 30*time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such lease")
	})
}
