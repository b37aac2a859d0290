package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func loggerConfig(t *testing.T, format, level string) *Config {
	t.Helper()
	cfg, err := NewConfig(Config{MatrixPath: "matrix.hcl", LogFormat: format, LogLevel: level})
	require.NoError(t, err)
	return cfg
}

func TestNewLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := newLogger(loggerConfig(t, "json", "debug"), &out)
	logger.Debug("hello")

	require.Contains(t, out.String(), `"msg":"hello"`)
}

func TestNewLogger_TextFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := newLogger(loggerConfig(t, "text", "info"), &out)
	logger.Info("hello")

	require.Contains(t, out.String(), "msg=hello")
	require.NotContains(t, out.String(), `"msg"`)
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := newLogger(loggerConfig(t, "text", "warn"), &out)
	logger.Info("quiet")
	logger.Warn("loud")

	require.NotContains(t, out.String(), "quiet")
	require.Contains(t, out.String(), "loud")
}
