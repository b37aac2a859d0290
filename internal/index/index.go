// Package index abstracts the package index an environment's pins are
// resolved against: a local directory index or a remote HTTP index.
package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
)

// Index lists and fetches package releases.
type Index interface {
	// Versions returns every version the index advertises for a package.
	Versions(ctx context.Context, pkg string) ([]*semver.Version, error)
	// Fetch downloads the archive for one release into destPath on fs.
	Fetch(ctx context.Context, pkg string, version *semver.Version, fs afero.Fs, destPath string) error
}

// New selects the index implementation by URL scheme: http(s) URLs get the
// HTTP client, anything else is treated as a local directory path.
func New(indexURL string) Index {
	if strings.HasPrefix(indexURL, "http://") || strings.HasPrefix(indexURL, "https://") {
		return NewHTTPIndex(indexURL)
	}
	return NewLocalIndex(indexURL)
}

// ArchiveName is the canonical file name of a package release archive.
func ArchiveName(pkg string, version *semver.Version) string {
	return fmt.Sprintf("%s-%s.tar.gz", pkg, version.Original())
}

// parseVersions converts raw version strings, rejecting unparseable entries.
func parseVersions(pkg string, raw []string) ([]*semver.Version, error) {
	var versions []*semver.Version
	for _, s := range raw {
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("package %q: index advertises invalid version %q: %w", pkg, s, err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}
