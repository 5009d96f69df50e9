// Package config defines the format-agnostic configuration model and the
// Loader interface that concrete formats (HCL today) implement. Nothing in
// here knows about HCL; the model is what the rest of the application
// consumes.
package config
