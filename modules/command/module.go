// Package command implements the handler that runs one configured shell
// command of an environment.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"

	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/registry"
)

// outputTailLimit caps how much captured output a step result keeps.
const outputTailLimit = 8 * 1024

// hostBaseline is always copied from the host environment so that commands
// can locate binaries and write temp files without every matrix declaring
// them in pass_env.
var hostBaseline = []string{"PATH", "HOME", "TMPDIR", "LANG"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewModule returns the command module.
func NewModule() *Module {
	return &Module{}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(&Handler{})
}

// Handler runs command steps through the platform shell.
type Handler struct{}

// Kind implements registry.Handler.
func (h *Handler) Kind() registry.StepKind {
	return registry.KindCommand
}

// Run implements registry.Handler. The command runs under `/bin/sh -c` in a
// dedicated process group; on cancellation or timeout the whole group is
// killed so helper processes don't outlive the step.
func (h *Handler) Run(ctx context.Context, step *registry.Step) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx).With("environment", step.EnvName, "command", step.Command)
	logger.Info("Running command.")

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", step.Command)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Env = buildEnv(step)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	err := cmd.Run()

	// The direct child is reaped by Run; stray grandchildren in the group
	// are killed here. Absence of the group is not an error.
	if cmd.Process != nil {
		if pgid, pgErr := syscall.Getpgid(cmd.Process.Pid); pgErr == nil {
			if killErr := syscall.Kill(-pgid, syscall.SIGKILL); killErr != nil && killErr != syscall.ESRCH {
				logger.Warn("Failed to clean up process group.", "error", killErr)
			}
		}
	}

	result := &registry.Result{Output: tail(output.Bytes())}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, fmt.Errorf("command %q timed out after %s: %w", step.Command, step.Timeout, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, fmt.Errorf("command %q exited with code %d", step.Command, result.ExitCode)
		}
		return result, fmt.Errorf("starting command %q: %w", step.Command, err)
	}

	logger.Debug("Command succeeded.", "output_bytes", output.Len())
	return result, nil
}

// buildEnv assembles the step's environment: the host baseline, the declared
// pass-through names (absent host values are simply not set), the fixed
// set_env entries, and the engine's own variables.
func buildEnv(step *registry.Step) []string {
	var env []string
	appended := make(map[string]bool)

	passthrough := func(name string) {
		if appended[name] {
			return
		}
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
			appended[name] = true
		}
	}
	for _, name := range hostBaseline {
		passthrough(name)
	}
	for _, name := range step.PassEnv {
		passthrough(name)
	}

	keys := make([]string, 0, len(step.SetEnv))
	for key := range step.SetEnv {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+step.SetEnv[key])
	}

	env = append(env, "ENVGRID_ENVIRONMENT="+step.EnvName)
	env = append(env, "ENVGRID_ENV_DIR="+step.EnvDir)
	return env
}

// tail returns the final outputTailLimit bytes of captured output.
func tail(output []byte) string {
	if len(output) <= outputTailLimit {
		return string(output)
	}
	return string(output[len(output)-outputTailLimit:])
}
