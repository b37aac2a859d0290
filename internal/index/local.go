package index

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// indexFile is the listing file a local index directory must contain.
const indexFile = "index.yaml"

// localListing mirrors the structure of index.yaml.
type localListing struct {
	Packages map[string]struct {
		Versions []string `yaml:"versions"`
	} `yaml:"packages"`
}

// LocalIndex serves packages from a directory: an index.yaml listing plus
// archives stored under <root>/<package>/.
type LocalIndex struct {
	root string
}

// NewLocalIndex returns an index rooted at the given directory.
func NewLocalIndex(root string) *LocalIndex {
	return &LocalIndex{root: root}
}

func (l *LocalIndex) listing() (*localListing, error) {
	data, err := os.ReadFile(filepath.Join(l.root, indexFile))
	if err != nil {
		return nil, fmt.Errorf("reading local index listing: %w", err)
	}
	var listing localListing
	if err := yaml.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", indexFile, err)
	}
	return &listing, nil
}

// Versions implements Index.
func (l *LocalIndex) Versions(ctx context.Context, pkg string) ([]*semver.Version, error) {
	listing, err := l.listing()
	if err != nil {
		return nil, err
	}
	entry, ok := listing.Packages[pkg]
	if !ok {
		return nil, nil
	}
	return parseVersions(pkg, entry.Versions)
}

// Fetch implements Index by copying the archive out of the index directory.
func (l *LocalIndex) Fetch(ctx context.Context, pkg string, version *semver.Version, fs afero.Fs, destPath string) error {
	src := filepath.Join(l.root, pkg, ArchiveName(pkg, version))
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening archive for %s %s: %w", pkg, version.Original(), err)
	}
	defer in.Close()

	out, err := fs.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying archive for %s %s: %w", pkg, version.Original(), err)
	}
	return nil
}
