// Package config defines the format-agnostic model of a test-environment
// matrix, decoupled from the HCL syntax it is loaded from, plus the
// resolution pass that overlays defaults onto each declared environment.
package config
