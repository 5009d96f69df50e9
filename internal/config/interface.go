package config

import "context"

// Loader translates configuration sources (files or directories) into the
// agnostic model. Implementations own all parsing and syntax concerns.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
