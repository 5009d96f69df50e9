// Package schema defines the HCL block structures a user's grid file is
// decoded into, before translation into the format-agnostic config model.
package schema

import "github.com/hashicorp/hcl/v2"

// Task declares a unit of work the dependency graph may reference.
type Task struct {
	ID          string `hcl:"id,label"`
	Description string `hcl:"description,optional"`
}

// Dependency declares one edge: `task` depends on `depends_on`. Kind
// defaults to "hard" when omitted. Metadata stays an expression here so the
// loader can decode arbitrary key/value maps through cty.
type Dependency struct {
	TaskID      string         `hcl:"task"`
	DependsOn   string         `hcl:"depends_on"`
	Kind        string         `hcl:"kind,optional"`
	Description string         `hcl:"description,optional"`
	Metadata    hcl.Expression `hcl:"metadata,optional"`
}

// Coordinator tunes lease/heartbeat cadences. Intervals are duration
// strings ("15s", "1m30s").
type Coordinator struct {
	HeartbeatInterval string `hcl:"heartbeat_interval,optional"`
	RenewInterval     string `hcl:"renew_interval,optional"`
	TTL               string `hcl:"ttl,optional"`
	IncludeSoftCycles *bool  `hcl:"include_soft_cycles,optional"`
	VerdictRetention  string `hcl:"verdict_retention,optional"`
}

// Grid is the top-level structure of a grid file.
type Grid struct {
	Tasks        []*Task       `hcl:"task,block"`
	Dependencies []*Dependency `hcl:"dependency,block"`
	Coordinator  *Coordinator  `hcl:"coordinator,block"`
	Body         hcl.Body      `hcl:",remain"`
}
