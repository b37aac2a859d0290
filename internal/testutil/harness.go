// Package testutil provides the shared harness for integration tests: it
// materializes matrix files into a temp directory, runs the full app over
// them, and captures the combined log and summary output.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/envgridgo/internal/app"
	"github.com/vk/envgridgo/internal/hcl"
	"github.com/vk/envgridgo/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessOptions tunes a harness run.
type HarnessOptions struct {
	// ConfigureApp mutates the default config before the app is built.
	ConfigureApp func(cfg *app.Config)
	// Modules replaces the built-in handler modules when non-empty.
	Modules []registry.Module
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output is the combined log and summary output.
	Output string
	Err    error
	App    *app.App
}

// RunMatrixTest writes the given files (path -> content, relative to a fresh
// temp root), builds an app over the root, runs it, and returns the outcome.
func RunMatrixTest(t *testing.T, files map[string]string, opts *HarnessOptions) *HarnessResult {
	t.Helper()
	if opts == nil {
		opts = &HarnessOptions{}
	}

	tmpDir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := app.NewConfig(app.Config{
		MatrixPath:  tmpDir,
		WorkDir:     filepath.Join(tmpDir, ".envgrid"),
		LogFormat:   "text",
		LogLevel:    "debug",
		WorkerCount: 4,
	})
	require.NoError(t, err)
	if opts.ConfigureApp != nil {
		opts.ConfigureApp(cfg)
	}

	output := &SafeBuffer{}
	testApp, err := app.NewApp(output, cfg, hcl.NewLoader(), opts.Modules...)
	if err != nil {
		return &HarnessResult{Output: output.String(), Err: err}
	}

	runErr := testApp.Run(context.Background())

	if os.Getenv("ENVGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full output for %s ---\n%s", t.Name(), output.String())
	}

	return &HarnessResult{
		Output: output.String(),
		Err:    runErr,
		App:    testApp,
	}
}
