package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_RequiresMatrixPath(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "MatrixPath is a required configuration field")
}

func TestNewConfig_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{MatrixPath: "matrix.hcl"})
	require.NoError(t, err)
	require.Equal(t, ".envgrid", cfg.WorkDir)
	require.Equal(t, 1, cfg.WorkerCount)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestNewConfig_NormalizesLogSettings(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{MatrixPath: "matrix.hcl", LogFormat: "JSON", LogLevel: "Debug"})
	require.NoError(t, err)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestNewConfig_RejectsInvalidLogSettings(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{MatrixPath: "matrix.hcl", LogFormat: "yaml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log-format")

	_, err = NewConfig(Config{MatrixPath: "matrix.hcl", LogLevel: "verbose"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log-level")
}

func TestNewConfig_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{
		MatrixPath:  "matrix.hcl",
		WorkDir:     "/tmp/grid",
		WorkerCount: 8,
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/grid", cfg.WorkDir)
	require.Equal(t, 8, cfg.WorkerCount)
}
