package install

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/vk/envgridgo/internal/config"
	"github.com/vk/envgridgo/internal/index"
	"github.com/vk/envgridgo/internal/registry"
)

// fakeIndex serves a fixed version listing and counts archive fetches.
type fakeIndex struct {
	mu       sync.Mutex
	versions map[string][]string
	fetches  int
}

func (f *fakeIndex) Versions(ctx context.Context, pkg string) ([]*semver.Version, error) {
	var out []*semver.Version
	for _, raw := range f.versions[pkg] {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeIndex) Fetch(ctx context.Context, pkg string, version *semver.Version, fs afero.Fs, destPath string) error {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	return afero.WriteFile(fs, destPath, []byte(pkg+"-"+version.Original()), 0o644)
}

func newHandler(fs afero.Fs, idx *fakeIndex) *Handler {
	return &Handler{fs: fs, newIndex: func(string) index.Index { return idx }}
}

func installStep() *registry.Step {
	return &registry.Step{
		EnvName:  "py34-1.7",
		EnvDir:   "/work/.envgrid/py34-1.7",
		Kind:     registry.KindInstall,
		IndexURL: "https://packages.example.com/index",
		Pins: []*config.Pin{
			{Package: "Django", Constraint: "<1.8"},
			{Package: "coverage"},
		},
	}
}

func TestRun_ProvisionsArchivesAndLockFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	idx := &fakeIndex{versions: map[string][]string{
		"Django":   {"1.7.0", "1.7.11", "1.8.2"},
		"coverage": {"3.7.1", "4.0.0"},
	}}

	result, err := newHandler(fs, idx).Run(context.Background(), installStep())
	require.NoError(t, err)
	require.Equal(t, "provisioned 2 packages (2 fetched)", result.Output)

	data, err := afero.ReadFile(fs, "/work/.envgrid/py34-1.7/Django-1.7.11.tar.gz")
	require.NoError(t, err)
	require.Equal(t, "Django-1.7.11", string(data))

	lock, err := afero.ReadFile(fs, "/work/.envgrid/py34-1.7/"+LockFileName)
	require.NoError(t, err)
	require.Contains(t, string(lock), "environment: py34-1.7")
	require.Contains(t, string(lock), "package: Django")
	require.Contains(t, string(lock), "version: 1.7.11")
	require.Contains(t, string(lock), "constraint: <1.8")
	require.Contains(t, string(lock), "version: 4.0.0")
}

func TestRun_IsIdempotent(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	idx := &fakeIndex{versions: map[string][]string{
		"Django":   {"1.7.11"},
		"coverage": {"4.0.0"},
	}}
	handler := newHandler(fs, idx)

	_, err := handler.Run(context.Background(), installStep())
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), installStep())
	require.NoError(t, err)
	require.Equal(t, "provisioned 2 packages (0 fetched)", result.Output)
	require.Equal(t, 2, idx.fetches)
}

func TestRun_MissingIndexURLRejected(t *testing.T) {
	t.Parallel()

	step := installStep()
	step.IndexURL = ""

	_, err := newHandler(afero.NewMemMapFs(), &fakeIndex{}).Run(context.Background(), step)
	require.Error(t, err)
	require.Contains(t, err.Error(), "declares pins but no index_url")
}

func TestRun_UnsatisfiablePinSurfacesResolutionError(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	idx := &fakeIndex{versions: map[string][]string{
		"Django":   {"1.8.2", "1.9.0"},
		"coverage": {"4.0.0"},
	}}

	_, err := newHandler(fs, idx).Run(context.Background(), installStep())
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("package %q", "Django"))
}
