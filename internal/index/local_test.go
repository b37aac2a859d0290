package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeLocalIndex(t *testing.T, listing string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.yaml"), []byte(listing), 0o644))
	return root
}

func TestLocalIndex_Versions(t *testing.T) {
	t.Parallel()

	root := writeLocalIndex(t, `
packages:
  Django:
    versions: ["1.7.11", "1.8.2"]
  coverage:
    versions: ["4.0.0"]
`)

	idx := NewLocalIndex(root)
	got, err := idx.Versions(context.Background(), "Django")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "1.7.11", got[0].Original())
	require.Equal(t, "1.8.2", got[1].Original())
}

func TestLocalIndex_UnknownPackageReturnsNothing(t *testing.T) {
	t.Parallel()

	root := writeLocalIndex(t, "packages: {}\n")

	idx := NewLocalIndex(root)
	got, err := idx.Versions(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLocalIndex_MissingListingFails(t *testing.T) {
	t.Parallel()

	idx := NewLocalIndex(t.TempDir())
	_, err := idx.Versions(context.Background(), "Django")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading local index listing")
}

func TestLocalIndex_InvalidVersionFails(t *testing.T) {
	t.Parallel()

	root := writeLocalIndex(t, `
packages:
  Django:
    versions: ["one point seven"]
`)

	idx := NewLocalIndex(root)
	_, err := idx.Versions(context.Background(), "Django")
	require.Error(t, err)
}

func TestLocalIndex_FetchCopiesArchive(t *testing.T) {
	t.Parallel()

	root := writeLocalIndex(t, `
packages:
  Django:
    versions: ["1.7.11"]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Django"), 0o755))
	archive := filepath.Join(root, "Django", "Django-1.7.11.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("archive-bytes"), 0o644))

	idx := NewLocalIndex(root)
	versions, err := idx.Versions(context.Background(), "Django")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	dest := "/envs/py34-1.7/Django-1.7.11.tar.gz"
	require.NoError(t, idx.Fetch(context.Background(), "Django", versions[0], fs, dest))

	data, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	require.Equal(t, "archive-bytes", string(data))
}

func TestLocalIndex_FetchMissingArchiveFails(t *testing.T) {
	t.Parallel()

	root := writeLocalIndex(t, `
packages:
  Django:
    versions: ["1.7.11"]
`)

	idx := NewLocalIndex(root)
	versions, err := idx.Versions(context.Background(), "Django")
	require.NoError(t, err)

	err = idx.Fetch(context.Background(), "Django", versions[0], afero.NewMemMapFs(), "/dest.tar.gz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "opening archive")
}
