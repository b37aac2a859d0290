package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/envgridgo/internal/cli"
)

func TestRun_HelpExitsCleanly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"--help"}))
}

func TestRun_ParseErrorPropagates(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{"--no-such-flag", "matrix.hcl"})
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_StartupFailureSurfacesLoadError(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load configuration")
}

func TestRun_ExecutesMatrix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	matrix := `
matrix {
  envlist = ["smoke"]
}

environment "smoke" {
  commands = ["true"]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "matrix.hcl"), []byte(matrix), 0o644))

	var out bytes.Buffer
	err := run(&out, []string{
		"--workdir", filepath.Join(dir, ".envgrid"),
		"--log-level", "error",
		filepath.Join(dir, "matrix.hcl"),
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), "smoke: passed")
	require.Contains(t, out.String(), "matrix: 1 passed, 0 failed, 0 skipped")
}
