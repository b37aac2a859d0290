package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"
)

func exprOf(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), "parsing expression %q: %v", src, diags)
	return expr
}

func TestResolve_InheritsDefaults(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList: []string{"a"},
		Defaults: &Defaults{
			Interpreter: "python3.4",
			Commands:    exprOf(t, `["echo one", "echo two"]`),
			PassEnv:     []string{"MANDRILL_API_KEY"},
			SetEnv:      map[string]string{"DJANGO_MODE": "Staging"},
			IndexURL:    "https://index.example.com",
		},
		Environments: []*Environment{{Name: "a"}},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "work"})
	require.NoError(t, err)
	require.Len(t, envs, 1)

	env := envs[0]
	require.Equal(t, "a", env.Name)
	require.Equal(t, filepath.Join("work", "a"), env.Dir)
	require.Equal(t, "python3.4", env.Interpreter)
	require.Equal(t, []string{"echo one", "echo two"}, env.Commands)
	require.Equal(t, []string{"MANDRILL_API_KEY"}, env.PassEnv)
	require.Equal(t, map[string]string{"DJANGO_MODE": "Staging"}, env.SetEnv)
	require.Equal(t, "https://index.example.com", env.IndexURL)
}

func TestResolve_NullCommandsExpressionInheritsDefaults(t *testing.T) {
	t.Parallel()

	// Decoding a block without a commands attribute yields a null
	// expression rather than a nil field; it must fall back to the
	// defaults list exactly like a nil one.
	matrix := &Matrix{
		EnvList: []string{"a"},
		Defaults: &Defaults{
			Commands: exprOf(t, `["echo one", "echo two"]`),
		},
		Environments: []*Environment{{
			Name:     "a",
			Commands: exprOf(t, `null`),
		}},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "work"})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.Equal(t, []string{"echo one", "echo two"}, envs[0].Commands)
}

func TestResolve_EnvironmentOverridesAndMerges(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList: []string{"a"},
		Defaults: &Defaults{
			Interpreter: "python3.4",
			Commands:    exprOf(t, `["echo default"]`),
			PassEnv:     []string{"API_KEY"},
			SetEnv:      map[string]string{"MODE": "Staging", "KEEP": "yes"},
		},
		Environments: []*Environment{{
			Name:        "a",
			Interpreter: "python3.5",
			Commands:    exprOf(t, `["echo override"]`),
			PassEnv:     []string{"API_KEY", "EXTRA"},
			SetEnv:      map[string]string{"MODE": "Production"},
		}},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "work"})
	require.NoError(t, err)

	env := envs[0]
	require.Equal(t, "python3.5", env.Interpreter)
	require.Equal(t, []string{"echo override"}, env.Commands)
	require.Equal(t, []string{"API_KEY", "EXTRA"}, env.PassEnv, "pass_env merges without duplicates")
	require.Equal(t, map[string]string{"MODE": "Production", "KEEP": "yes"}, env.SetEnv, "set_env merges per key, environment wins")
}

func TestResolve_CommandsSeeEnvVariables(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList: []string{"py34"},
		Defaults: &Defaults{
			Commands: exprOf(t, `["run --out ${env.dir} --tag ${env.name}"]`),
		},
		Environments: []*Environment{{Name: "py34"}},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "work"})
	require.NoError(t, err)
	require.Equal(t, []string{"run --out " + filepath.Join("work", "py34") + " --tag py34"}, envs[0].Commands)
}

func TestResolve_OrderFollowsEnvList(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList:  []string{"c", "a", "b"},
		Defaults: &Defaults{Commands: exprOf(t, `["echo hi"]`)},
		Environments: []*Environment{
			{Name: "a"}, {Name: "b"}, {Name: "c"},
		},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "w"})
	require.NoError(t, err)

	var names []string
	for _, env := range envs {
		names = append(names, env.Name)
	}
	require.Equal(t, []string{"c", "a", "b"}, names)
}

func TestResolve_SubsetSelection(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList:  []string{"a", "b", "c"},
		Defaults: &Defaults{Commands: exprOf(t, `["echo hi"]`)},
		Environments: []*Environment{
			{Name: "a"}, {Name: "b"}, {Name: "c"},
		},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "w", Only: []string{"c", "a"}})
	require.NoError(t, err)

	var names []string
	for _, env := range envs {
		names = append(names, env.Name)
	}
	require.Equal(t, []string{"a", "c"}, names, "selection keeps envlist order, not selection order")
}

func TestResolve_UnknownSelectionFails(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList:      []string{"a"},
		Defaults:     &Defaults{Commands: exprOf(t, `["echo hi"]`)},
		Environments: []*Environment{{Name: "a"}},
	}

	_, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "w", Only: []string{"nope"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"nope"`)
}

func TestResolve_NonLintEnvironmentNeedsCommands(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList:      []string{"a"},
		Environments: []*Environment{{Name: "a"}},
	}

	_, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "w"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no commands")
}

func TestResolve_LintEnvironmentNeedsNoCommands(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList: []string{"flake8"},
		Environments: []*Environment{{
			Name: "flake8",
			Lint: &LintRules{Source: "connect", MaxLineLength: 119},
		}},
	}

	envs, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "w"})
	require.NoError(t, err)
	require.True(t, envs[0].IsLint())
	require.Empty(t, envs[0].Commands)
}

func TestResolve_DependsOnOutsideRunFails(t *testing.T) {
	t.Parallel()

	matrix := &Matrix{
		EnvList:  []string{"a", "b"},
		Defaults: &Defaults{Commands: exprOf(t, `["echo hi"]`)},
		Environments: []*Environment{
			{Name: "a"},
			{Name: "b", DependsOn: []string{"a"}},
		},
	}

	_, err := matrix.Resolve(context.Background(), ResolveOptions{WorkDir: "w", Only: []string{"b"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not part of this run")
}
