package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteResults creates the run directory and writes payload as results.json.
func WriteResults(outputDir, runID string, payload any) (OutputPaths, error) {
	paths, err := NewOutputPaths(outputDir, runID)
	if err != nil {
		return OutputPaths{}, err
	}
	if err := os.MkdirAll(paths.RunDir(), 0o755); err != nil {
		return OutputPaths{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := writeJSON(paths.ResultsPath(), payload); err != nil {
		return OutputPaths{}, err
	}
	return paths, nil
}

// writeJSON writes a payload as pretty JSON.
func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
