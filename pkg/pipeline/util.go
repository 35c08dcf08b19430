package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// writeJSON marshals v as indented JSON and writes it to path, used for
// the diagnostic artifacts (recon-report.json, test-report.json) spec.md
// §6 names alongside state.json.
func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
