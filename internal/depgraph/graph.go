package depgraph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pairKey identifies the unordered task pair an edge connects. Exactly one
// edge may exist per pair, regardless of direction or kind.
type pairKey struct {
	lo, hi string
}

func newPairKey(a, b string) pairKey {
	if a < b {
		return pairKey{lo: a, hi: b}
	}
	return pairKey{lo: b, hi: a}
}

// Validator owns the dependency edge set and the verdict cache. All
// operations are concurrency-safe: mutations serialize on a write lock,
// reads run against a consistent snapshot under a read lock.
type Validator struct {
	mu    sync.RWMutex
	edges map[pairKey]Edge
	cache *verdictCache

	oracle     TaskOracle
	strict     bool
	softCycles bool
	retention  time.Duration
}

// Option configures a Validator.
type Option func(*Validator)

// WithOracle wires in the external task-existence oracle. On its own it
// only powers orphan detection in Statistics; combine with
// WithStrictReferences to reject unknown references at AddEdge time.
func WithOracle(o TaskOracle) Option {
	return func(v *Validator) { v.oracle = o }
}

// WithStrictReferences makes AddEdge fail with ErrUnknownTask when either
// endpoint is unknown to the oracle. Without it, unknown references are
// merely flagged later through Statistics().OrphanedEdges.
func WithStrictReferences() Option {
	return func(v *Validator) { v.strict = true }
}

// WithSoftCycles controls whether soft edges participate in cycle
// detection. They do by default; disabling treats them as pure hints that
// can never form a reportable cycle.
func WithSoftCycles(include bool) Option {
	return func(v *Validator) { v.softCycles = include }
}

// WithVerdictRetention overrides the default 24h retention window used by
// PruneVerdicts.
func WithVerdictRetention(d time.Duration) Option {
	return func(v *Validator) { v.retention = d }
}

// DefaultVerdictRetention is how long cached verdicts survive before
// PruneVerdicts considers them expired.
const DefaultVerdictRetention = 24 * time.Hour

// New creates an empty Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		edges:      make(map[pairKey]Edge),
		cache:      newVerdictCache(),
		softCycles: true,
		retention:  DefaultVerdictRetention,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// AddEdge records that taskID depends on dependsOn and returns the edge id.
// It fails if the unordered pair already carries an edge of either kind, if
// the edge is self-referential, or (with an oracle configured) if either id
// is unknown. The edge set is left unchanged on any failure.
func (v *Validator) AddEdge(ctx context.Context, e Edge) (string, error) {
	if e.TaskID == e.DependsOn {
		return "", fmt.Errorf("%w: %s", ErrSelfReference, e.TaskID)
	}
	if e.Kind == "" {
		e.Kind = KindHard
	}
	if !e.Kind.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}

	if v.strict && v.oracle != nil {
		if !v.oracle.TaskExists(ctx, e.TaskID) {
			return "", fmt.Errorf("%w: %s", ErrUnknownTask, e.TaskID)
		}
		if !v.oracle.TaskExists(ctx, e.DependsOn) {
			return "", fmt.Errorf("%w: %s", ErrUnknownTask, e.DependsOn)
		}
	}

	key := newPairKey(e.TaskID, e.DependsOn)

	v.mu.Lock()
	defer v.mu.Unlock()

	if existing, ok := v.edges[key]; ok {
		return "", fmt.Errorf("%w: %s and %s already linked (%s)",
			ErrDuplicateEdge, existing.TaskID, existing.DependsOn, existing.Kind)
	}
	v.edges[key] = e

	return edgeID(e), nil
}

// RemoveEdge deletes the edge between the unordered pair and reports
// whether one existed. Removing a missing edge is not an error.
func (v *Validator) RemoveEdge(taskID, dependsOn string) bool {
	key := newPairKey(taskID, dependsOn)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.edges[key]; !ok {
		return false
	}
	delete(v.edges, key)
	return true
}

// IsReady reports whether every hard prerequisite of taskID is present in
// completed. Soft edges never block readiness. IsReady does not validate
// the graph; a task inside an unresolved cycle of hard edges can never
// become ready, so callers should check Validate first.
func (v *Validator) IsReady(taskID string, completed map[string]struct{}) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, e := range v.edges {
		if e.TaskID != taskID || e.Kind != KindHard {
			continue
		}
		if _, done := completed[e.DependsOn]; !done {
			return false
		}
	}
	return true
}

// Statistics recomputes the diagnostic aggregate over the live edge set.
// O(edges) each call; this is a diagnostic path, not a hot path.
func (v *Validator) Statistics(ctx context.Context) Statistics {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var stats Statistics
	dependedOn := make(map[string]struct{})

	for _, e := range v.edges {
		stats.TotalEdges++
		switch e.Kind {
		case KindHard:
			stats.HardEdges++
		case KindSoft:
			stats.SoftEdges++
		}
		dependedOn[e.DependsOn] = struct{}{}

		if v.oracle != nil {
			if !v.oracle.TaskExists(ctx, e.TaskID) || !v.oracle.TaskExists(ctx, e.DependsOn) {
				stats.OrphanedEdges++
			}
		}
	}
	stats.TasksWithDependents = len(dependedOn)

	return stats
}

// Edges returns a copy of the current edge set.
func (v *Validator) Edges() []Edge {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshotLocked()
}

// snapshotLocked copies the edge set. Callers must hold at least a read lock.
func (v *Validator) snapshotLocked() []Edge {
	edges := make([]Edge, 0, len(v.edges))
	for _, e := range v.edges {
		edges = append(edges, e)
	}
	return edges
}

// edgeID is the stable identifier of a directed edge.
func edgeID(e Edge) string {
	return e.DependsOn + "->" + e.TaskID
}
