// Package app wires the loaded grid configuration into the dependency
// validator and, in agent mode, the lease coordinator. It owns the
// application lifecycle: logger construction, the optional health check
// HTTP server, and the run flow the CLI entrypoint drives.
package app
