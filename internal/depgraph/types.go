package depgraph

import (
	"context"
	"time"
)

// Kind classifies the relationship between two tasks.
type Kind string

const (
	// KindHard marks a prerequisite that must complete before the
	// dependent task may be considered ready.
	KindHard Kind = "hard"
	// KindSoft marks an ordering hint that never blocks readiness.
	KindSoft Kind = "soft"
)

// IsValid reports whether the kind is one of the known classifications.
func (k Kind) IsValid() bool {
	return k == KindHard || k == KindSoft
}

// Edge is a directed dependency: TaskID depends on DependsOn.
type Edge struct {
	TaskID      string
	DependsOn   string
	Kind        Kind
	Description string
	Metadata    map[string]string
}

// Verdict is the immutable result of one validation run. It is valid only
// for the exact edge set identified by Fingerprint.
type Verdict struct {
	// Fingerprint is a deterministic digest of the canonicalized edge set.
	Fingerprint string
	// Valid is true iff no cycles were found.
	Valid bool
	// Cycles holds every distinct cycle, each as the ordered sequence of
	// task ids that returns to its starting task.
	Cycles [][]string
	// ComputedAt records when the traversal ran.
	ComputedAt time.Time
}

// Statistics is a derived aggregate over the live edge set. It is
// recomputed on every call and never cached across mutations.
type Statistics struct {
	TotalEdges          int
	HardEdges           int
	SoftEdges           int
	TasksWithDependents int
	// OrphanedEdges counts edges referencing a task unknown to the
	// configured oracle. Always zero when no oracle is set.
	OrphanedEdges int
}

// TaskOracle reports whether a task id is known to the external task store.
// The validator treats it as an optional strictness knob: without an oracle,
// unknown references are only surfaced through Statistics.
type TaskOracle interface {
	TaskExists(ctx context.Context, taskID string) bool
}

// FixedOracle is a TaskOracle backed by a fixed set of task ids.
type FixedOracle map[string]struct{}

// NewFixedOracle builds a FixedOracle from a list of task ids.
func NewFixedOracle(ids ...string) FixedOracle {
	o := make(FixedOracle, len(ids))
	for _, id := range ids {
		o[id] = struct{}{}
	}
	return o
}

// TaskExists reports whether the id is in the set.
func (o FixedOracle) TaskExists(_ context.Context, taskID string) bool {
	_, ok := o[taskID]
	return ok
}
