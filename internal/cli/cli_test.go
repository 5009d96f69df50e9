package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("grid flag", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"--grid", "tasks.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "tasks.hcl", cfg.GridPath)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("shorthand and positional forms", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"-g", "short.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "short.hcl", cfg.GridPath)

		cfg, _, err = Parse([]string{"positional.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "positional.hcl", cfg.GridPath)
	})

	t.Run("agent mode flags", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"--grid", "tasks.hcl",
			"--agent", "agent-1",
			"--task", "task-42",
			"--store-url", "http://store:8080",
			"--health-sink-url", "http://dash:3000/socket.io",
		}, &out)
		require.NoError(t, err)
		assert.Equal(t, "agent-1", cfg.AgentID)
		assert.Equal(t, "task-42", cfg.TaskID)
		assert.Equal(t, "http://store:8080", cfg.StoreURL)
		assert.Equal(t, "http://dash:3000/socket.io", cfg.HealthSinkURL)
	})

	t.Run("agent without task is rejected", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"--grid", "tasks.hcl", "--agent", "agent-1"}, &out)
		require.Error(t, err)

		exitErr, ok := err.(*ExitError)
		require.True(t, ok)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("no grid path prints usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("invalid log settings", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"--grid", "g.hcl", "--log-format", "xml"}, &out)
		assert.ErrorContains(t, err, "invalid log-format")

		_, _, err = Parse([]string{"--grid", "g.hcl", "--log-level", "loud"}, &out)
		assert.ErrorContains(t, err, "invalid log-level")
	})
}
