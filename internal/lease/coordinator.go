package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/dispatchgrid/internal/ctxlog"
	"github.com/vk/dispatchgrid/internal/leasestore"
)

// ErrAlreadyRunning is returned by Start when the coordinator is already
// running. This is a programming error in the caller's lifecycle wiring,
// unlike the transient store failures the tick loops swallow.
var ErrAlreadyRunning = errors.New("lease coordinator already running")

// Default cadences. The renewal interval is deliberately shorter than the
// TTL so that, barring a hang or crash, a renewal always lands before the
// previous lease window expires.
const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultRenewInterval     = 10 * time.Second
	DefaultTTL               = 30 * time.Second
)

// Claim names the (agent, task) pair a coordinator tracks liveness for.
type Claim struct {
	AgentID string
	TaskID  string
}

// Options tunes the coordinator's cadences. Zero values fall back to the
// package defaults.
type Options struct {
	HeartbeatInterval time.Duration
	RenewInterval     time.Duration
	TTL               time.Duration
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.RenewInterval <= 0 {
		o.RenewInterval = DefaultRenewInterval
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	return o
}

// Coordinator drives the heartbeat and lease-renewal loops for one claim.
// Lifecycle is Stopped -> Running -> Stopped; Start and Stop may be called
// from different goroutines, and Stop is safe concurrently with in-flight
// ticks.
type Coordinator struct {
	store leasestore.HeartbeatStore
	renew renewFunc
	sink  leasestore.HealthSink
	opts  Options

	mu      sync.Mutex
	running bool
	claim   Claim
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// renewFunc is the renewal strategy selected at construction time.
type renewFunc func(ctx context.Context, claim Claim, ttl time.Duration) error

// New creates a coordinator writing to store. When renewer is non-nil the
// store's native renewal primitive is used; otherwise renewal falls back to
// re-upserting a working record with a fresh TTL window. sink may be nil to
// disable health reporting.
func New(store leasestore.HeartbeatStore, renewer leasestore.Renewer, sink leasestore.HealthSink, opts Options) *Coordinator {
	c := &Coordinator{
		store: store,
		sink:  sink,
		opts:  opts.withDefaults(),
	}

	if renewer != nil {
		c.renew = func(ctx context.Context, claim Claim, ttl time.Duration) error {
			return renewer.Renew(ctx, claim.AgentID, claim.TaskID, ttl)
		}
	} else {
		c.renew = func(ctx context.Context, claim Claim, ttl time.Duration) error {
			return store.UpsertHeartbeat(ctx, leasestore.LeaseRecord{
				AgentID:  claim.AgentID,
				TaskID:   claim.TaskID,
				LastSeen: time.Now(),
				Status:   leasestore.StatusWorking,
				TTL:      ttl,
			})
		}
	}

	return c
}

// Start begins liveness tracking for the claim. One heartbeat and one lease
// renewal are performed synchronously before the periodic loops are armed,
// so an observer reading the store right after Start returns already sees a
// fresh working record. Fails with ErrAlreadyRunning if called while Running.
func (c *Coordinator) Start(ctx context.Context, claim Claim) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("%w: agent %s task %s", ErrAlreadyRunning, c.claim.AgentID, c.claim.TaskID)
	}

	// The loops outlive the caller's context; Stop is the sole
	// cancellation path. Logger and other values still flow through.
	base := context.WithoutCancel(ctx)
	tickCtx, cancel := context.WithCancel(base)

	c.running = true
	c.claim = claim
	c.baseCtx = base
	c.cancel = cancel

	logger := ctxlog.FromContext(ctx).With("agentID", claim.AgentID, "taskID", claim.TaskID)
	logger.Debug("Starting lease coordinator.",
		"heartbeatInterval", c.opts.HeartbeatInterval,
		"renewInterval", c.opts.RenewInterval,
		"ttl", c.opts.TTL)

	// Initial synchronous heartbeat-then-renewal, strictly ordered before
	// any periodic tick. Store failures here are as non-fatal as on any
	// later tick; persistent failure surfaces as staleness to observers.
	c.emitHeartbeat(ctx, leasestore.StatusWorking)
	c.emitRenewal(ctx)

	c.wg.Add(2)
	go c.heartbeatLoop(tickCtx)
	go c.renewLoop(tickCtx)

	return nil
}

// Stop disarms both periodic loops, waits until no tick can fire anymore,
// then writes one final idle heartbeat so observers see a terminal idle
// record instead of a stale working one. No-op when already Stopped; never
// returns an error even if the final write fails.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false

	c.cancel()
	c.wg.Wait()

	logger := ctxlog.FromContext(c.baseCtx).With("agentID", c.claim.AgentID, "taskID", c.claim.TaskID)
	logger.Debug("Lease coordinator stopped, writing final idle record.")

	c.emitHeartbeat(c.baseCtx, leasestore.StatusIdle)
}

// IsRunning reports whether Start has completed without a matching Stop.
// It tracks the liveness loops only, not task progress.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Coordinator) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.emitHeartbeat(ctx, leasestore.StatusWorking)
		}
	}
}

func (c *Coordinator) renewLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.emitRenewal(ctx)
		}
	}
}

// emitHeartbeat writes a lease record and reports health. A store failure
// is logged and swallowed; one missed tick must not terminate liveness
// tracking.
func (c *Coordinator) emitHeartbeat(ctx context.Context, status leasestore.Status) {
	rec := leasestore.LeaseRecord{
		AgentID:  c.claim.AgentID,
		TaskID:   c.claim.TaskID,
		LastSeen: time.Now(),
		Status:   status,
		TTL:      c.opts.TTL,
	}

	err := c.store.UpsertHeartbeat(ctx, rec)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Heartbeat write failed.",
			"agentID", c.claim.AgentID, "taskID", c.claim.TaskID, "error", err)
	}

	c.reportHealth(ctx, status, err)
}

// emitRenewal extends the lease's effective expiry with a fresh TTL window
// anchored at the current time. Failures are swallowed like heartbeat ones.
func (c *Coordinator) emitRenewal(ctx context.Context) {
	if err := c.renew(ctx, c.claim, c.opts.TTL); err != nil {
		ctxlog.FromContext(ctx).Warn("Lease renewal failed.",
			"agentID", c.claim.AgentID, "taskID", c.claim.TaskID, "error", err)
	}
}
