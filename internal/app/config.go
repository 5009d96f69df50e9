package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string // hcl files

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Agent mode: when AgentID and TaskID are set, Run keeps the claim's
	// lease alive until the context is cancelled.
	AgentID string
	TaskID  string

	// StoreURL selects the remote lease store; empty means the in-memory
	// store (useful only for local experiments and tests).
	StoreURL string

	// HealthSinkURL selects the Socket.IO dashboard health events go to;
	// empty disables health reporting.
	HealthSinkURL string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if (cfg.AgentID == "") != (cfg.TaskID == "") {
		return nil, errors.New("agent mode requires both an agent id and a task id")
	}

	return &cfg, nil
}
