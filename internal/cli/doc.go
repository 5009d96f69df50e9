// Package cli parses command-line arguments into an app.Config and owns the
// usage text and exit-code conventions of the dispatchgrid binary.
package cli
