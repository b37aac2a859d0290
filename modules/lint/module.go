// Package lint implements the static-checker handler for lint environments:
// it walks the configured source tree and flags lines exceeding the maximum
// line length, honoring the exclusion globs.
package lint

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/registry"
)

// maxFindings caps how many individual findings a result lists.
const maxFindings = 50

// Module implements the registry.Module interface for this package.
type Module struct {
	fs afero.Fs
}

// NewModule returns a lint module reading the source tree through fs.
func NewModule(fs afero.Fs) *Module {
	return &Module{fs: fs}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(&Handler{fs: m.fs})
}

// Handler runs lint steps.
type Handler struct {
	fs afero.Fs
}

// Kind implements registry.Handler.
func (h *Handler) Kind() registry.StepKind {
	return registry.KindLint
}

// Run implements registry.Handler. Any finding fails the step; the result
// lists findings as file:line messages.
func (h *Handler) Run(ctx context.Context, step *registry.Step) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx).With("environment", step.EnvName, "source", step.Lint.Source)
	logger.Info("Linting source tree.", "max_line_length", step.Lint.MaxLineLength)

	var findings []string
	checked := 0
	err := afero.Walk(h.fs, step.Lint.Source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if excluded(path, step.Lint.Exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		fileFindings, err := h.checkFile(path, step.Lint.MaxLineLength)
		if err != nil {
			return err
		}
		findings = append(findings, fileFindings...)
		checked++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", step.Lint.Source, err)
	}

	if len(findings) > 0 {
		listed := findings
		if len(listed) > maxFindings {
			listed = listed[:maxFindings]
		}
		result := &registry.Result{
			ExitCode: 1,
			Output:   strings.Join(listed, "\n"),
		}
		return result, fmt.Errorf("lint found %d long lines in %q", len(findings), step.Lint.Source)
	}

	logger.Debug("Lint passed.", "files_checked", checked)
	return &registry.Result{
		Output: fmt.Sprintf("checked %d files, no findings", checked),
	}, nil
}

// checkFile scans one file for lines longer than maxLen runes.
func (h *Handler) checkFile(path string, maxLen int) ([]string, error) {
	file, err := h.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer file.Close()

	var findings []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if length := utf8.RuneCountInString(scanner.Text()); length > maxLen {
			findings = append(findings,
				fmt.Sprintf("%s:%d: line too long (%d > %d)", path, lineNo, length, maxLen))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return findings, nil
}

// excluded reports whether the path matches any exclusion glob. Each pattern
// is tried against every suffix of the slash-separated path, so relative
// patterns like `*/migrations/*` and basename patterns like `*tests*` both
// behave as expected regardless of how deep the walk is rooted.
func excluded(path string, patterns []string) bool {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for _, pattern := range patterns {
		for i := range segments {
			suffix := strings.Join(segments[i:], "/")
			if ok, err := doublestar.Match(pattern, suffix); err == nil && ok {
				return true
			}
		}
	}
	return false
}
