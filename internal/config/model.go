package config

import "time"

// Task is a declared unit of work.
type Task struct {
	ID          string
	Description string
}

// Dependency is one declared edge: TaskID depends on DependsOn.
type Dependency struct {
	TaskID      string
	DependsOn   string
	Kind        string
	Description string
	Metadata    map[string]string
}

// Coordinator carries the lease/heartbeat cadences and validator tuning.
type Coordinator struct {
	HeartbeatInterval time.Duration
	RenewInterval     time.Duration
	TTL               time.Duration
	IncludeSoftCycles bool
	VerdictRetention  time.Duration
}

// Model is the complete loaded configuration.
type Model struct {
	Tasks        []*Task
	Dependencies []*Dependency
	Coordinator  *Coordinator
}

// TaskIDs lists the ids of all declared tasks.
func (m *Model) TaskIDs() []string {
	ids := make([]string, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
