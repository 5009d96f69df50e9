package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dispatchgrid/internal/config"
)

// writeGrid drops an .hcl file into dir and returns its path.
func writeGrid(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("single file with all block types", func(t *testing.T) {
		path := writeGrid(t, t.TempDir(), "grid.hcl", `
task "build" {
  description = "compile everything"
}

task "test" {}
task "deploy" {}

dependency {
  task       = "test"
  depends_on = "build"
}

dependency {
  task        = "deploy"
  depends_on  = "test"
  kind        = "soft"
  description = "prefer testing first"
  metadata = {
    owner = "platform"
  }
}

coordinator {
  heartbeat_interval  = "5s"
  renew_interval      = "3s"
  ttl                 = "10s"
  include_soft_cycles = false
  verdict_retention   = "1h"
}
`)

		model, err := NewLoader().Load(ctx, path)
		require.NoError(t, err)

		want := &config.Model{
			Tasks: []*config.Task{
				{ID: "build", Description: "compile everything"},
				{ID: "test"},
				{ID: "deploy"},
			},
			Dependencies: []*config.Dependency{
				{TaskID: "test", DependsOn: "build", Kind: "hard"},
				{
					TaskID:      "deploy",
					DependsOn:   "test",
					Kind:        "soft",
					Description: "prefer testing first",
					Metadata:    map[string]string{"owner": "platform"},
				},
			},
			Coordinator: &config.Coordinator{
				HeartbeatInterval: 5 * time.Second,
				RenewInterval:     3 * time.Second,
				TTL:               10 * time.Second,
				IncludeSoftCycles: false,
				VerdictRetention:  time.Hour,
			},
		}

		if diff := cmp.Diff(want, model); diff != "" {
			t.Errorf("loaded model mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("directory is searched recursively", func(t *testing.T) {
		dir := t.TempDir()
		writeGrid(t, dir, "tasks.hcl", `task "a" {}`)
		nested := filepath.Join(dir, "deps")
		require.NoError(t, os.Mkdir(nested, 0o755))
		writeGrid(t, nested, "edges.hcl", `
task "b" {}
dependency {
  task       = "b"
  depends_on = "a"
}
`)

		model, err := NewLoader().Load(ctx, dir)
		require.NoError(t, err)
		assert.Len(t, model.Tasks, 2)
		assert.Len(t, model.Dependencies, 1)
	})

	t.Run("coordinator defaults apply when fields are omitted", func(t *testing.T) {
		path := writeGrid(t, t.TempDir(), "grid.hcl", `coordinator {}`)

		model, err := NewLoader().Load(ctx, path)
		require.NoError(t, err)
		require.NotNil(t, model.Coordinator)
		assert.Equal(t, 15*time.Second, model.Coordinator.HeartbeatInterval)
		assert.Equal(t, 10*time.Second, model.Coordinator.RenewInterval)
		assert.Equal(t, 30*time.Second, model.Coordinator.TTL)
		assert.True(t, model.Coordinator.IncludeSoftCycles)
	})

	t.Run("error cases", func(t *testing.T) {
		cases := []struct {
			name    string
			content string
			wantErr string
		}{
			{
				name: "invalid kind",
				content: `
dependency {
  task       = "b"
  depends_on = "a"
  kind       = "optional"
}
`,
				wantErr: "kind must be",
			},
			{
				name: "non-string metadata value",
				content: `
dependency {
  task       = "b"
  depends_on = "a"
  metadata   = { retries = 3 }
}
`,
				wantErr: "must be a string",
			},
			{
				name:    "invalid duration",
				content: `coordinator { ttl = "soon" }`,
				wantErr: "invalid ttl",
			},
			{
				name:    "renew interval not shorter than ttl",
				content: `
coordinator {
  renew_interval = "30s"
  ttl            = "30s"
}
`,
				wantErr: "must be shorter than ttl",
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				path := writeGrid(t, t.TempDir(), "grid.hcl", tc.content)
				_, err := NewLoader().Load(ctx, path)
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.wantErr)
			})
		}
	})

	t.Run("missing path fails", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, "/does/not/exist.hcl")
		assert.Error(t, err)
	})

	t.Run("duplicate coordinator blocks fail", func(t *testing.T) {
		dir := t.TempDir()
		writeGrid(t, dir, "one.hcl", `coordinator {}`)
		writeGrid(t, dir, "two.hcl", `coordinator {}`)

		_, err := NewLoader().Load(ctx, dir)
		require.Error(t, err)
		assert.ErrorContains(t, err, "duplicate coordinator block")
	})
}
