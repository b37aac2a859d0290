// Package hcl implements the HCL-backed matrix loader. It parses matrix
// files, merges them, and translates the result into the format-agnostic
// config model.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/envgridgo/internal/config"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/fsutil"
	"github.com/vk/envgridgo/internal/schema"
)

// Extension is the file suffix the loader discovers matrix files by.
const Extension = ".hcl"

// Loader loads HCL matrix files. It implements config.Loader.
type Loader struct{}

// NewLoader returns a ready-to-use HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every matrix file under the given paths, merges them, and
// translates the result into the config model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, Extension)
		if err != nil {
			return nil, fmt.Errorf("discovering matrix files under %q: %w", path, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s matrix files found under %v", Extension, paths)
	}
	logger.Debug("Discovered matrix files.", "count", len(files))

	parser := hclparse.NewParser()
	var configs []*schema.MatrixConfig
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", file, diags)
		}

		var mc schema.MatrixConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &mc); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", file, diags)
		}
		configs = append(configs, &mc)
		logger.Debug("Parsed matrix file.", "file", file, "environments", len(mc.Environments))
	}

	merged, err := merge(configs, files)
	if err != nil {
		return nil, err
	}

	model := &config.Model{Matrix: translateMatrix(merged)}
	if err := validate(model.Matrix); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded and translated into unified model.",
		"envlist", model.Matrix.EnvList, "environments", len(model.Matrix.Environments))
	return model, nil
}

// merge folds per-file configs into one. The matrix and defaults blocks may
// each appear at most once across all files; environments append.
func merge(configs []*schema.MatrixConfig, files []string) (*schema.MatrixConfig, error) {
	merged := &schema.MatrixConfig{}
	seen := make(map[string]string)
	for i, mc := range configs {
		file := files[i]
		if mc.Matrix != nil {
			if merged.Matrix != nil {
				return nil, fmt.Errorf("%s: duplicate matrix block, already declared elsewhere", file)
			}
			merged.Matrix = mc.Matrix
		}
		if mc.Defaults != nil {
			if merged.Defaults != nil {
				return nil, fmt.Errorf("%s: duplicate defaults block, already declared elsewhere", file)
			}
			merged.Defaults = mc.Defaults
		}
		for _, env := range mc.Environments {
			if prev, dup := seen[env.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate environment %q, already declared in %s", file, env.Name, prev)
			}
			seen[env.Name] = file
			merged.Environments = append(merged.Environments, env)
		}
	}
	if merged.Matrix == nil {
		return nil, fmt.Errorf("no matrix block found in %v", files)
	}
	return merged, nil
}

// validate enforces cross-block integrity of the merged matrix.
func validate(m *config.Matrix) error {
	if len(m.EnvList) == 0 {
		return fmt.Errorf("matrix envlist must not be empty")
	}
	for _, name := range m.EnvList {
		if m.Environment(name) == nil {
			return fmt.Errorf("envlist names %q but no environment block declares it", name)
		}
	}
	return nil
}
