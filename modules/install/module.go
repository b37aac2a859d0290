// Package install implements the handler that provisions an environment's
// directory: it resolves the declared pins against the package index,
// fetches the release archives, and writes the lockfile.
package install

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/index"
	"github.com/vk/envgridgo/internal/pins"
	"github.com/vk/envgridgo/internal/registry"
	"gopkg.in/yaml.v3"

	"github.com/Masterminds/semver/v3"
)

// LockFileName is the per-environment record of resolved pin versions.
const LockFileName = "pins.lock.yml"

// IndexFactory builds an index client for a configured index URL or path.
type IndexFactory func(indexURL string) index.Index

// Module implements the registry.Module interface for this package.
type Module struct {
	fs       afero.Fs
	newIndex IndexFactory
}

// NewModule returns an install module writing through fs and reaching the
// package index through newIndex.
func NewModule(fs afero.Fs, newIndex IndexFactory) *Module {
	return &Module{fs: fs, newIndex: newIndex}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(&Handler{fs: m.fs, newIndex: m.newIndex})
}

// Handler provisions install steps.
type Handler struct {
	fs       afero.Fs
	newIndex IndexFactory
}

// Kind implements registry.Handler.
func (h *Handler) Kind() registry.StepKind {
	return registry.KindInstall
}

// lockFile mirrors the structure of pins.lock.yml.
type lockFile struct {
	Environment string      `yaml:"environment"`
	Packages    []lockEntry `yaml:"packages"`
}

type lockEntry struct {
	Package    string `yaml:"package"`
	Version    string `yaml:"version"`
	Constraint string `yaml:"constraint,omitempty"`
}

// Run implements registry.Handler. Provisioning an already-populated
// environment directory is idempotent: archives present on disk are kept.
func (h *Handler) Run(ctx context.Context, step *registry.Step) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx).With("environment", step.EnvName)

	if step.IndexURL == "" {
		return nil, fmt.Errorf("environment %q declares pins but no index_url is configured", step.EnvName)
	}
	idx := h.newIndex(step.IndexURL)

	available := make(map[string][]*semver.Version, len(step.Pins))
	for _, pin := range step.Pins {
		versions, err := idx.Versions(ctx, pin.Package)
		if err != nil {
			return nil, fmt.Errorf("listing versions for %q: %w", pin.Package, err)
		}
		available[pin.Package] = versions
	}

	resolved, err := pins.Resolve(step.Pins, available)
	if err != nil {
		return nil, err
	}

	if err := h.fs.MkdirAll(step.EnvDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating environment directory %q: %w", step.EnvDir, err)
	}

	fetched := 0
	for _, r := range resolved {
		dest := filepath.Join(step.EnvDir, index.ArchiveName(r.Package, r.Version))
		exists, err := afero.Exists(h.fs, dest)
		if err != nil {
			return nil, fmt.Errorf("checking for %q: %w", dest, err)
		}
		if exists {
			logger.Debug("Archive already provisioned.", "package", r.Package, "version", r.Version.Original())
			continue
		}
		if err := idx.Fetch(ctx, r.Package, r.Version, h.fs, dest); err != nil {
			return nil, err
		}
		fetched++
	}

	if err := h.writeLockFile(step, resolved); err != nil {
		return nil, err
	}

	logger.Info("Environment provisioned.", "packages", len(resolved), "fetched", fetched)
	return &registry.Result{
		Output: fmt.Sprintf("provisioned %d packages (%d fetched)", len(resolved), fetched),
	}, nil
}

func (h *Handler) writeLockFile(step *registry.Step, resolved []*pins.Resolved) error {
	lock := lockFile{Environment: step.EnvName}
	for i, r := range resolved {
		lock.Packages = append(lock.Packages, lockEntry{
			Package:    r.Package,
			Version:    r.Version.Original(),
			Constraint: step.Pins[i].Constraint,
		})
	}

	data, err := yaml.Marshal(&lock)
	if err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}
	path := filepath.Join(step.EnvDir, LockFileName)
	if err := afero.WriteFile(h.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
