package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ResolvedEnv is a fully-resolved environment: defaults overlaid with the
// environment block, command expressions evaluated, and the working
// directory assigned.
type ResolvedEnv struct {
	Name        string
	Dir         string
	Interpreter string
	Commands    []string
	PassEnv     []string
	SetEnv      map[string]string
	IndexURL    string
	DependsOn   []string
	Pins        []*Pin
	Lint        *LintRules
}

// IsLint reports whether the environment runs the static checker instead of
// its command list.
func (e *ResolvedEnv) IsLint() bool {
	return e.Lint != nil
}

// ResolveOptions controls matrix resolution.
type ResolveOptions struct {
	// WorkDir is the parent directory under which each environment gets
	// its own subdirectory.
	WorkDir string
	// Only restricts resolution to a subset of the envlist. Order still
	// follows the envlist, not the selection. Empty means all.
	Only []string
}

// Resolve produces the effective environments in envlist order.
func (m *Matrix) Resolve(ctx context.Context, opts ResolveOptions) ([]*ResolvedEnv, error) {
	logger := ctxlog.FromContext(ctx)

	selected := make(map[string]bool, len(opts.Only))
	for _, name := range opts.Only {
		if m.Environment(name) == nil {
			return nil, fmt.Errorf("selected environment %q is not declared in the matrix", name)
		}
		selected[name] = true
	}

	defaults := m.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}

	var resolved []*ResolvedEnv
	for _, name := range m.EnvList {
		if len(selected) > 0 && !selected[name] {
			continue
		}
		env := m.Environment(name)
		if env == nil {
			return nil, fmt.Errorf("envlist names %q but no environment block declares it", name)
		}

		re := &ResolvedEnv{
			Name:        name,
			Dir:         filepath.Join(opts.WorkDir, name),
			Interpreter: overlay(defaults.Interpreter, env.Interpreter),
			IndexURL:    overlay(defaults.IndexURL, env.IndexURL),
			PassEnv:     mergeNames(defaults.PassEnv, env.PassEnv),
			SetEnv:      mergeEnv(defaults.SetEnv, env.SetEnv),
			DependsOn:   env.DependsOn,
			Pins:        env.Pins,
			Lint:        env.Lint,
		}

		// An environment block that omits `commands` decodes to a null
		// expression, not a nil field, so the fallback keys off the
		// evaluated value.
		commands, err := evalCommands(env.Commands, re)
		if err != nil {
			return nil, fmt.Errorf("environment %q: %w", name, err)
		}
		if commands == nil {
			if commands, err = evalCommands(defaults.Commands, re); err != nil {
				return nil, fmt.Errorf("environment %q: %w", name, err)
			}
		}
		re.Commands = commands

		if !re.IsLint() && len(re.Commands) == 0 {
			return nil, fmt.Errorf("environment %q has no commands and no lint rules", name)
		}
		if re.IsLint() && re.Lint.MaxLineLength <= 0 {
			return nil, fmt.Errorf("environment %q: max_line_length must be positive", name)
		}

		logger.Debug("Resolved environment.",
			"name", re.Name, "commands", len(re.Commands), "pins", len(re.Pins), "lint", re.IsLint())
		resolved = append(resolved, re)
	}

	for _, re := range resolved {
		for _, dep := range re.DependsOn {
			if !containsEnv(resolved, dep) {
				return nil, fmt.Errorf("environment %q depends on %q, which is not part of this run", re.Name, dep)
			}
		}
	}

	return resolved, nil
}

// evalCommands evaluates a commands expression with the environment's own
// name and directory in scope as `env.name` and `env.dir`.
func evalCommands(expr hcl.Expression, re *ResolvedEnv) ([]string, error) {
	if expr == nil {
		return nil, nil
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(map[string]cty.Value{
				"name": cty.StringVal(re.Name),
				"dir":  cty.StringVal(re.Dir),
			}),
		},
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating commands: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("commands must be a list of strings, got %s", val.Type().FriendlyName())
	}

	var commands []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.IsNull() || elem.Type() != cty.String {
			return nil, fmt.Errorf("commands must be a list of strings, element %d is %s",
				len(commands), elem.Type().FriendlyName())
		}
		commands = append(commands, elem.AsString())
	}
	return commands, nil
}

func overlay(base, override string) string {
	if override != "" {
		return override
	}
	return base
}

// mergeNames concatenates base and extra, dropping duplicates while keeping
// first-seen order.
func mergeNames(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	var merged []string
	for _, name := range append(append([]string{}, base...), extra...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, name)
	}
	return merged
}

// mergeEnv copies base and overlays extra on top, per key.
func mergeEnv(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func containsEnv(envs []*ResolvedEnv, name string) bool {
	for _, e := range envs {
		if e.Name == name {
			return true
		}
	}
	return false
}
