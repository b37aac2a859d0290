// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/envgridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("envgridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
envgridgo - A declarative test-environment matrix runner.

Usage:
  envgridgo [options] [MATRIX_PATH]

Arguments:
  MATRIX_PATH
    Path to a single .hcl matrix file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	matrixFlag := flagSet.String("matrix", "", "Path to the matrix file or directory.")
	mFlag := flagSet.String("m", "", "Path to the matrix file or directory (shorthand).")
	envFlag := flagSet.String("e", "", "Comma-separated subset of the envlist to run.")
	workDirFlag := flagSet.String("workdir", ".envgrid", "Parent directory for per-environment directories.")
	indexFlag := flagSet.String("index", "", "Package index URL or directory, overriding the matrix configuration.")
	reportFlag := flagSet.String("report", "", "Path for the JSON run report. Empty disables it.")
	failFastFlag := flagSet.Bool("fail-fast", false, "Cancel the whole run on the first step failure.")
	timeoutFlag := flagSet.Duration("command-timeout", 0, "Per-command timeout. 0 disables it.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *matrixFlag != "" {
		path = *matrixFlag
	} else if *mFlag != "" {
		path = *mFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No matrix path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid command-timeout: must not be negative"}
	}

	config, err := app.NewConfig(app.Config{
		MatrixPath:      path,
		Environments:    splitEnvSelection(*envFlag),
		WorkDir:         *workDirFlag,
		IndexURL:        *indexFlag,
		ReportPath:      *reportFlag,
		FailFast:        *failFastFlag,
		CommandTimeout:  *timeoutFlag,
		LogFormat:       *logFormatFlag,
		LogLevel:        *logLevelFlag,
		HealthcheckPort: *healthPortFlag,
		WorkerCount:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}

// splitEnvSelection turns "a,b , c" into ["a", "b", "c"].
func splitEnvSelection(raw string) []string {
	if raw == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
