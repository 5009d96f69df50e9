package depgraph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vk/dispatchgrid/internal/ctxlog"
)

// Validate computes the fingerprint of the current edge set and returns the
// cached verdict when one exists for it. Otherwise it runs cycle detection
// over the full edge set, stores the new verdict under the fingerprint, and
// returns it. A cyclic graph is a normal, reportable outcome, never an error.
func (v *Validator) Validate(ctx context.Context) Verdict {
	v.mu.RLock()
	edges := v.snapshotLocked()
	v.mu.RUnlock()

	fp := fingerprint(edges)

	if verdict, ok := v.cache.get(fp); ok {
		ctxlog.FromContext(ctx).Debug("Validation cache hit.", "fingerprint", fp)
		return verdict
	}

	cycles := detectCycles(edges, v.softCycles)
	verdict := Verdict{
		Fingerprint: fp,
		Valid:       len(cycles) == 0,
		Cycles:      cycles,
		ComputedAt:  time.Now(),
	}

	// Concurrent validators racing on the same fingerprint compute
	// identical verdicts, so the insert is idempotent either way.
	verdict = v.cache.put(verdict)

	ctxlog.FromContext(ctx).Debug("Validation verdict computed.",
		"fingerprint", fp, "valid", verdict.Valid, "cycles", len(verdict.Cycles))
	return verdict
}

// PruneVerdicts drops cached verdicts older than the retention window. The
// verdict for the current fingerprint is never pruned, regardless of age.
// Returns the number of verdicts removed.
func (v *Validator) PruneVerdicts() int {
	v.mu.RLock()
	edges := v.snapshotLocked()
	v.mu.RUnlock()

	current := fingerprint(edges)
	return v.cache.prune(time.Now().Add(-v.retention), current)
}

// detectCycles runs a depth-first traversal with three-color marking over
// the dependency edges. Traversal follows the dependency direction
// (prerequisite to dependent, as the executor would unlock work); a
// back-edge to an in-progress node yields one cycle, reconstructed as the
// ordered path from that node back to itself. All distinct cycles are
// collected; overlapping cycles are deduplicated by canonical rotation.
func detectCycles(edges []Edge, includeSoft bool) [][]string {
	adjacency := make(map[string][]string)
	nodes := make(map[string]struct{})

	for _, e := range edges {
		nodes[e.TaskID] = struct{}{}
		nodes[e.DependsOn] = struct{}{}
		if e.Kind == KindSoft && !includeSoft {
			continue
		}
		adjacency[e.DependsOn] = append(adjacency[e.DependsOn], e.TaskID)
	}

	// Deterministic traversal order keeps reported cycles stable across runs.
	ordered := make([]string, 0, len(nodes))
	for id := range nodes {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)
	for _, succ := range adjacency {
		sort.Strings(succ)
	}

	const (
		white = iota // unvisited
		gray         // in progress, on the current traversal stack
		black        // done, known cycle-free from here
	)
	color := make(map[string]int, len(nodes))

	var (
		cycles [][]string
		seen   = make(map[string]struct{})
		stack  []string
	)

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)

		for _, next := range adjacency[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Back-edge: the cycle is the stack suffix starting at next.
				start := 0
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						start = i
						break
					}
				}
				cycle := append([]string(nil), stack[start:]...)
				key := canonicalCycleKey(cycle)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ordered {
		if color[id] == white {
			visit(id)
		}
	}

	return cycles
}

// canonicalCycleKey rotates a cycle so its smallest task id comes first,
// giving every rotation of the same cycle the same key.
func canonicalCycleKey(cycle []string) string {
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	key := ""
	for i := range cycle {
		key += cycle[(min+i)%len(cycle)] + "\x00"
	}
	return key
}

// verdictCache stores immutable verdicts keyed by fingerprint.
type verdictCache struct {
	mu       sync.Mutex
	verdicts map[string]Verdict
}

func newVerdictCache() *verdictCache {
	return &verdictCache{verdicts: make(map[string]Verdict)}
}

func (c *verdictCache) get(fp string) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	verdict, ok := c.verdicts[fp]
	return verdict, ok
}

// put stores the verdict unless one already exists for the fingerprint, in
// which case the existing verdict wins. Verdicts are never mutated in place.
func (c *verdictCache) put(verdict Verdict) Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.verdicts[verdict.Fingerprint]; ok {
		return existing
	}
	c.verdicts[verdict.Fingerprint] = verdict
	return verdict
}

// prune removes verdicts computed before the cutoff, sparing the one for
// the current fingerprint.
func (c *verdictCache) prune(cutoff time.Time, currentFP string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fp, verdict := range c.verdicts {
		if fp == currentFP {
			continue
		}
		if verdict.ComputedAt.Before(cutoff) {
			delete(c.verdicts, fp)
			removed++
		}
	}
	return removed
}
