// Package schema holds the HCL-facing structures that matrix files are
// decoded into before translation to the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// MatrixBlock represents the single `matrix` block naming the run order.
type MatrixBlock struct {
	EnvList []string `hcl:"envlist"`
}

// DefaultsBlock represents the `defaults` block shared by all environments.
type DefaultsBlock struct {
	Interpreter string            `hcl:"interpreter,optional"`
	Commands    hcl.Expression    `hcl:"commands,optional"`
	PassEnv     []string          `hcl:"pass_env,optional"`
	SetEnv      map[string]string `hcl:"set_env,optional"`
	IndexURL    string            `hcl:"index_url,optional"`
}

// PinBlock represents a `pin "<package>"` block inside an environment.
type PinBlock struct {
	Package    string `hcl:"package,label"`
	Constraint string `hcl:"constraint,optional"`
}

// LintBlock represents the `lint` block of a lint environment.
type LintBlock struct {
	Source        string   `hcl:"source"`
	Exclude       []string `hcl:"exclude,optional"`
	MaxLineLength int      `hcl:"max_line_length,optional"`
}

// EnvironmentBlock represents an `environment "<name>"` block.
type EnvironmentBlock struct {
	Name        string            `hcl:"name,label"`
	Interpreter string            `hcl:"interpreter,optional"`
	Commands    hcl.Expression    `hcl:"commands,optional"`
	PassEnv     []string          `hcl:"pass_env,optional"`
	SetEnv      map[string]string `hcl:"set_env,optional"`
	IndexURL    string            `hcl:"index_url,optional"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	Pins        []*PinBlock       `hcl:"pin,block"`
	Lint        *LintBlock        `hcl:"lint,block"`
}

// MatrixConfig represents the top-level structure of a single matrix file.
type MatrixConfig struct {
	Matrix       *MatrixBlock        `hcl:"matrix,block"`
	Defaults     *DefaultsBlock      `hcl:"defaults,block"`
	Environments []*EnvironmentBlock `hcl:"environment,block"`
	Body         hcl.Body            `hcl:",remain"`
}
