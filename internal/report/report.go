// Package report rolls per-step outcomes up into per-environment verdicts
// and a run report that can be printed as a summary or written as JSON.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/vk/envgridgo/internal/dag"
)

// StepReport records the outcome of a single step.
type StepReport struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Status   string  `json:"status"`
	ExitCode int     `json:"exit_code"`
	Seconds  float64 `json:"seconds"`
	Output   string  `json:"output,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// EnvReport records the rolled-up outcome of one environment.
type EnvReport struct {
	Name    string       `json:"name"`
	Status  string       `json:"status"`
	Seconds float64      `json:"seconds"`
	Steps   []StepReport `json:"steps"`
}

// RunReport is the full record of one matrix run.
type RunReport struct {
	RunID        string      `json:"run_id"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	Environments []EnvReport `json:"environments"`
}

// Environment statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// FromGraph assembles the run report from an executed graph, preserving the
// envlist order.
func FromGraph(g *dag.Graph, runID string, startedAt, finishedAt time.Time) *RunReport {
	run := &RunReport{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	for _, name := range g.EnvOrder {
		env := EnvReport{Name: name, Status: StatusPassed}
		allSkipped := true
		for _, node := range g.Chains[name] {
			step := StepReport{
				ID:     node.ID,
				Kind:   string(node.Step.Kind),
				Status: node.CurrentState().String(),
			}
			if node.Result != nil {
				step.ExitCode = node.Result.ExitCode
				step.Output = node.Result.Output
			}
			if node.Error != nil {
				step.Error = node.Error.Error()
			}
			if !node.StartedAt.IsZero() {
				step.Seconds = node.FinishedAt.Sub(node.StartedAt).Seconds()
				env.Seconds += step.Seconds
			}

			switch node.CurrentState() {
			case dag.Failed:
				env.Status = StatusFailed
				allSkipped = false
			case dag.Skipped:
				// Rolls the environment to skipped only when nothing ran.
			default:
				allSkipped = false
			}
			env.Steps = append(env.Steps, step)
		}
		if env.Status != StatusFailed && allSkipped && len(env.Steps) > 0 {
			env.Status = StatusSkipped
		}
		run.Environments = append(run.Environments, env)
	}
	return run
}

// Summary writes the per-environment verdict lines and the closing tally.
func (r *RunReport) Summary(w io.Writer) {
	passed, failed, skipped := 0, 0, 0
	for _, env := range r.Environments {
		switch env.Status {
		case StatusFailed:
			failed++
			fmt.Fprintf(w, "  %s: failed (%s)\n", env.Name, firstFailure(env))
		case StatusSkipped:
			skipped++
			fmt.Fprintf(w, "  %s: skipped\n", env.Name)
		default:
			passed++
			fmt.Fprintf(w, "  %s: passed (%d steps in %.1fs)\n", env.Name, len(env.Steps), env.Seconds)
		}
	}
	fmt.Fprintf(w, "matrix: %d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

// firstFailure names the first failed step of an environment. Failures
// without a process exit code, like a failed provisioning step, show the
// error text instead.
func firstFailure(env EnvReport) string {
	for _, step := range env.Steps {
		if step.Status != dag.Failed.String() {
			continue
		}
		if step.ExitCode != 0 {
			return fmt.Sprintf("%s: exit %d", step.ID, step.ExitCode)
		}
		if step.Error != "" {
			return fmt.Sprintf("%s: %s", step.ID, step.Error)
		}
		return step.ID
	}
	return "unknown step"
}
