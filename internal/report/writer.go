package report

import (
	"encoding/json"
	"fmt"

	"github.com/google/renameio/v2"
)

// Write persists the run report as JSON, atomically replacing any previous
// report at the same path.
func Write(path string, r *RunReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run report to %q: %w", path, err)
	}
	return nil
}
