// Package registry maps step kinds to the Go handlers that execute them.
// Handler modules self-register, mirroring how environments reference work
// by kind rather than by implementation.
package registry

import (
	"context"
	"time"

	"github.com/vk/envgridgo/internal/config"
)

// StepKind identifies which handler executes a step.
type StepKind string

const (
	// KindInstall provisions an environment's directory and pinned packages.
	KindInstall StepKind = "install"
	// KindCommand runs one configured shell command.
	KindCommand StepKind = "command"
	// KindLint runs the static checker over the configured source tree.
	KindLint StepKind = "lint"
)

// Step is one unit of work inside an environment's sequential chain.
type Step struct {
	EnvName     string
	Kind        StepKind
	Index       int
	EnvDir      string
	Interpreter string

	// Command is set for KindCommand steps.
	Command string
	// Pins and IndexURL are set for KindInstall steps.
	Pins     []*config.Pin
	IndexURL string
	// Lint is set for KindLint steps.
	Lint *config.LintRules

	PassEnv []string
	SetEnv  map[string]string
	// Timeout bounds a single step's execution. Zero means unbounded.
	Timeout time.Duration
}

// Result is what a handler reports back for a completed step.
type Result struct {
	// ExitCode is the process exit code for command steps, or 0/1 for
	// handlers without a subprocess.
	ExitCode int
	// Output holds the captured output tail, or the checker's findings.
	Output string
}

// Handler executes steps of a single kind.
type Handler interface {
	Kind() StepKind
	Run(ctx context.Context, step *Step) (*Result, error)
}

// Module is the interface all handler modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered handlers for a single application instance.
type Registry struct {
	handlers map[StepKind]Handler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{handlers: make(map[StepKind]Handler)}
}

// RegisterHandler registers a handler under its declared kind. A later
// registration for the same kind replaces the earlier one.
func (r *Registry) RegisterHandler(h Handler) {
	r.handlers[h.Kind()] = h
}

// Handler looks up the handler for a step kind.
func (r *Registry) Handler(kind StepKind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns the registered step kinds.
func (r *Registry) Kinds() []StepKind {
	kinds := make([]StepKind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
