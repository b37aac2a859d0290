package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// MatrixPath points at a single .hcl file or a directory of them.
	MatrixPath string
	// Environments restricts the run to a subset of the envlist. Empty
	// means every listed environment.
	Environments []string
	// WorkDir is the parent directory for per-environment directories.
	WorkDir string
	// IndexURL, when set, overrides the index configured in the matrix.
	IndexURL string
	// ReportPath, when set, receives the JSON run report.
	ReportPath string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	FailFast        bool
	// CommandTimeout bounds each command step. Zero means unbounded.
	CommandTimeout time.Duration
}

// NewConfig validates a Config and returns it. Log settings are normalized
// to lowercase so the logger constructor only ever sees validated values.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.MatrixPath == "" {
		return nil, errors.New("MatrixPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = ".envgrid"
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	return &cfg, nil
}
