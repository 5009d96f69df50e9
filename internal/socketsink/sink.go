// Package socketsink streams health events to a Socket.IO dashboard. It is
// a leasestore.HealthSink; losing events is acceptable, losing the tick
// loops that emit them is not, so every failure here stays non-fatal.
package socketsink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/dispatchgrid/internal/ctxlog"
	"github.com/vk/dispatchgrid/internal/leasestore"
)

// connectTimeout bounds the initial connection handshake.
const connectTimeout = 15 * time.Second

// EventName is the Socket.IO event health reports are emitted under.
const EventName = "health"

// Sink is a connected Socket.IO health event emitter.
type Sink struct {
	io *socket.Socket
}

// New dials the Socket.IO server at rawURL and joins the given namespace.
// It blocks until the connection is established, the context is cancelled,
// or the handshake times out.
func New(ctx context.Context, rawURL, namespace string) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)
	logger.Debug("Connecting health sink...")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse health sink URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Health sink connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- errs[0].(error)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("health sink connection failed: %w", err)
		}
		return &Sink{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while connecting health sink")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting health sink after %s", connectTimeout)
	}
}

// LogHealthEvent emits the event on the "health" channel.
func (s *Sink) LogHealthEvent(ctx context.Context, event leasestore.HealthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding health event: %w", err)
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("normalizing health event: %w", err)
	}

	if err := s.io.Emit(EventName, body); err != nil {
		return fmt.Errorf("emitting health event: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Health event emitted.", "agentID", event.AgentID, "status", event.Status)
	return nil
}

// Close disconnects from the dashboard.
func (s *Sink) Close() {
	s.io.Disconnect()
}
