// Package httpstore is a lease store client speaking JSON over HTTP to a
// remote coordination service. It implements both leasestore.HeartbeatStore
// and the native leasestore.Renewer capability:
//
//	PUT  /leases/{agent}/{task}        upsert a heartbeat record
//	POST /leases/{agent}/{task}/renew  extend the lease's TTL window
//
// Responses are JSON; {"ok": true} acknowledges a write, anything else
// carries an "error" field with the server's reason.
package httpstore

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"github.com/vk/dispatchgrid/internal/leasestore"
)

// DefaultTimeout bounds every request; the coordinator swallows tick
// failures, so a hung store must not wedge the tick loops forever.
const DefaultTimeout = 5 * time.Second

// Store is a remote lease store client.
type Store struct {
	client *resty.Client
}

// New creates a client for the store rooted at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Store{client: client}
}

// Close releases the underlying HTTP client resources.
func (s *Store) Close() {
	s.client.Close()
}

// UpsertHeartbeat writes the full lease record.
func (s *Store) UpsertHeartbeat(ctx context.Context, rec leasestore.LeaseRecord) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetPathParam("agent", rec.AgentID).
		SetPathParam("task", rec.TaskID).
		SetBody(map[string]any{
			"status":    string(rec.Status),
			"last_seen": rec.LastSeen.UTC().Format(time.RFC3339Nano),
			"ttl_ms":    rec.TTL.Milliseconds(),
		}).
		Put("/leases/{agent}/{task}")
	if err != nil {
		return fmt.Errorf("upserting heartbeat for %s/%s: %w", rec.AgentID, rec.TaskID, err)
	}

	return checkAck(res, "heartbeat upsert")
}

// Renew asks the store to extend the lease with a fresh TTL window
// anchored at the server's current time.
func (s *Store) Renew(ctx context.Context, agentID, taskID string, ttl time.Duration) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetPathParam("agent", agentID).
		SetPathParam("task", taskID).
		SetBody(map[string]any{"ttl_ms": ttl.Milliseconds()}).
		Post("/leases/{agent}/{task}/renew")
	if err != nil {
		return fmt.Errorf("renewing lease for %s/%s: %w", agentID, taskID, err)
	}

	return checkAck(res, "lease renewal")
}

// checkAck validates the server's JSON acknowledgement.
func checkAck(res *resty.Response, op string) error {
	body := res.String()

	if res.IsError() {
		if reason := gjson.Get(body, "error"); reason.Exists() {
			return fmt.Errorf("%s rejected: %s (status %d)", op, reason.String(), res.StatusCode())
		}
		return fmt.Errorf("%s rejected with status %d", op, res.StatusCode())
	}

	if !gjson.Get(body, "ok").Bool() {
		return fmt.Errorf("%s not acknowledged by store", op)
	}
	return nil
}
