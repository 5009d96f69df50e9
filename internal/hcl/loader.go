package hcl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/dispatchgrid/internal/config"
	"github.com/vk/dispatchgrid/internal/ctxlog"
	"github.com/vk/dispatchgrid/internal/depgraph"
	"github.com/vk/dispatchgrid/internal/lease"
	"github.com/vk/dispatchgrid/internal/schema"
)

// Loader parses grid files written in HCL.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load parses every .hcl file reachable from the given paths (files or
// directories, searched recursively) and merges them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := findHCLFiles(path)
		if err != nil {
			return nil, fmt.Errorf("discovering grid files under %q: %w", path, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl grid files found under %s", strings.Join(paths, ", "))
	}
	logger.Debug("Grid files discovered.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		grid, err := l.parseFile(file)
		if err != nil {
			return nil, err
		}
		if err := mergeGrid(model, grid, file); err != nil {
			return nil, err
		}
	}

	logger.Debug("Grid configuration loaded.",
		"tasks", len(model.Tasks), "dependencies", len(model.Dependencies))
	return model, nil
}

// parseFile parses and decodes a single grid file.
func (l *Loader) parseFile(path string) (*schema.Grid, error) {
	hclFile, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var grid schema.Grid
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &grid); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}
	return &grid, nil
}

// mergeGrid translates one decoded grid into the model.
func mergeGrid(model *config.Model, grid *schema.Grid, file string) error {
	for _, t := range grid.Tasks {
		model.Tasks = append(model.Tasks, &config.Task{
			ID:          t.ID,
			Description: t.Description,
		})
	}

	for _, d := range grid.Dependencies {
		dep, err := translateDependency(d)
		if err != nil {
			return fmt.Errorf("in %s: %w", file, err)
		}
		model.Dependencies = append(model.Dependencies, dep)
	}

	if grid.Coordinator != nil {
		if model.Coordinator != nil {
			return fmt.Errorf("in %s: duplicate coordinator block; only one is allowed across all grid files", file)
		}
		coord, err := translateCoordinator(grid.Coordinator)
		if err != nil {
			return fmt.Errorf("in %s: %w", file, err)
		}
		model.Coordinator = coord
	}

	return nil
}

// translateDependency converts the HCL dependency schema into the agnostic
// model, validating kind and decoding the metadata expression.
func translateDependency(d *schema.Dependency) (*config.Dependency, error) {
	kind := d.Kind
	if kind == "" {
		kind = string(depgraph.KindHard)
	}
	if !depgraph.Kind(kind).IsValid() {
		return nil, fmt.Errorf("dependency %s -> %s: kind must be %q or %q, got %q",
			d.TaskID, d.DependsOn, depgraph.KindHard, depgraph.KindSoft, kind)
	}

	metadata, err := decodeMetadata(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("dependency %s -> %s: %w", d.TaskID, d.DependsOn, err)
	}

	return &config.Dependency{
		TaskID:      d.TaskID,
		DependsOn:   d.DependsOn,
		Kind:        kind,
		Description: d.Description,
		Metadata:    metadata,
	}, nil
}

// decodeMetadata evaluates the metadata expression into a string map.
func decodeMetadata(expr hcl.Expression) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating metadata: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("metadata must be an object of strings, got %s", val.Type().FriendlyName())
	}

	metadata := make(map[string]string)
	for key, v := range val.AsValueMap() {
		if v.Type() != cty.String {
			return nil, fmt.Errorf("metadata value for %q must be a string, got %s", key, v.Type().FriendlyName())
		}
		metadata[key] = v.AsString()
	}
	return metadata, nil
}

// translateCoordinator parses the cadence durations, falling back to the
// lease package defaults for anything omitted.
func translateCoordinator(c *schema.Coordinator) (*config.Coordinator, error) {
	coord := &config.Coordinator{
		HeartbeatInterval: lease.DefaultHeartbeatInterval,
		RenewInterval:     lease.DefaultRenewInterval,
		TTL:               lease.DefaultTTL,
		IncludeSoftCycles: true,
		VerdictRetention:  depgraph.DefaultVerdictRetention,
	}

	var err error
	if coord.HeartbeatInterval, err = parseDuration(c.HeartbeatInterval, coord.HeartbeatInterval, "heartbeat_interval"); err != nil {
		return nil, err
	}
	if coord.RenewInterval, err = parseDuration(c.RenewInterval, coord.RenewInterval, "renew_interval"); err != nil {
		return nil, err
	}
	if coord.TTL, err = parseDuration(c.TTL, coord.TTL, "ttl"); err != nil {
		return nil, err
	}
	if coord.VerdictRetention, err = parseDuration(c.VerdictRetention, coord.VerdictRetention, "verdict_retention"); err != nil {
		return nil, err
	}
	if c.IncludeSoftCycles != nil {
		coord.IncludeSoftCycles = *c.IncludeSoftCycles
	}

	if coord.RenewInterval >= coord.TTL {
		return nil, fmt.Errorf("coordinator: renew_interval (%s) must be shorter than ttl (%s)",
			coord.RenewInterval, coord.TTL)
	}

	return coord, nil
}

func parseDuration(raw string, fallback time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("coordinator: invalid %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("coordinator: %s must be positive, got %s", field, d)
	}
	return d, nil
}

// findHCLFiles resolves a path to the list of .hcl files it covers.
func findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
