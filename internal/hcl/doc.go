// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, and translating
// HCL blocks and cty values into the format-agnostic model.
package hcl
