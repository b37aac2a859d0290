package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
	"github.com/vk/envgridgo/internal/ctxlog"
)

// HTTPIndex talks to a remote package index over plain HTTP: a JSON version
// listing at <base>/<package>/index.json and archives alongside it.
type HTTPIndex struct {
	base   string
	client *http.Client
}

// NewHTTPIndex returns an index client for the given base URL.
func NewHTTPIndex(base string) *HTTPIndex {
	return &HTTPIndex{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{},
	}
}

// httpListing mirrors the index.json document.
type httpListing struct {
	Versions []string `json:"versions"`
}

// Versions implements Index.
func (h *HTTPIndex) Versions(ctx context.Context, pkg string) ([]*semver.Version, error) {
	url := fmt.Sprintf("%s/%s/index.json", h.base, pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating index request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying index for %q: %w", pkg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %s for package %q", resp.Status, pkg)
	}

	var listing httpListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding index listing for %q: %w", pkg, err)
	}
	return parseVersions(pkg, listing.Versions)
}

// Fetch implements Index by downloading the release archive.
func (h *HTTPIndex) Fetch(ctx context.Context, pkg string, version *semver.Version, fs afero.Fs, destPath string) error {
	logger := ctxlog.FromContext(ctx)
	url := fmt.Sprintf("%s/%s/%s", h.base, pkg, ArchiveName(pkg, version))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating archive request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s %s: %w", pkg, version.Original(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("archive download for %s %s failed with status: %s", pkg, version.Original(), resp.Status)
	}

	out, err := fs.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("writing archive for %s %s: %w", pkg, version.Original(), err)
	}
	logger.Debug("Fetched package archive.", "package", pkg, "version", version.Original(), "bytes", written)
	return nil
}
