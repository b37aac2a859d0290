package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of the entire
// loaded configuration.
type Model struct {
	Matrix *Matrix
}

// Matrix represents the full environment matrix: the ordered environment
// list, the shared defaults, and every declared environment.
type Matrix struct {
	// EnvList is the declared run order. Every entry must name a declared
	// environment.
	EnvList      []string
	Defaults     *Defaults
	Environments []*Environment
}

// Defaults holds the settings shared by all environments unless an
// environment block overrides them.
type Defaults struct {
	Interpreter string
	// Commands is kept as an unevaluated expression so that it can be
	// evaluated per environment with that environment's variables in scope.
	Commands hcl.Expression
	PassEnv  []string
	SetEnv   map[string]string
	IndexURL string
}

// Environment is the format-agnostic representation of an `environment` block.
type Environment struct {
	Name        string
	Interpreter string
	Commands    hcl.Expression
	PassEnv     []string
	SetEnv      map[string]string
	IndexURL    string
	DependsOn   []string
	Pins        []*Pin
	Lint        *LintRules
}

// Pin constrains which release of a package may be provisioned for an
// environment. An empty constraint admits any version.
type Pin struct {
	Package    string
	Constraint string
}

// LintRules configures a lint environment. An environment carrying lint
// rules runs the static checker instead of the shared command list.
type LintRules struct {
	Source        string
	Exclude       []string
	MaxLineLength int
}

// Environment returns the declared environment with the given name, or nil.
func (m *Matrix) Environment(name string) *Environment {
	for _, env := range m.Environments {
		if env.Name == name {
			return env
		}
	}
	return nil
}
