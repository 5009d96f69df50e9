package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// An HCL syntax error is guaranteed to panic during the loading phase
	// inside app.NewApp(); run() must recover it into a clean error.
	invalidHCL := `
		task "build" {
	// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "grid.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	out := &bytes.Buffer{}
	runErr := run(context.Background(), out, []string{filePath})

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	require.Contains(t, runErr.Error(), "application startup panicked")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ValidGrid(t *testing.T) {
	t.Parallel()

	grid := `
task "a" {}
task "b" {}
dependency {
  task       = "b"
  depends_on = "a"
}
`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "grid.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(grid), 0600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--log-level", "error", filePath})

	require.NoError(t, err)
	require.Contains(t, out.String(), "dependency graph valid")
}
