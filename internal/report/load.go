package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"promptopt/internal/runner"
)

// LatestRef resolves to the newest run in an output directory.
const LatestRef = "latest"

func LoadResults(path string) (Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Results{}, err
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return Results{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return results, nil
}

// ResolveRun loads results for a run id, or for the newest run when ref is
// empty or "latest". Run ids sort by start time.
func ResolveRun(outputDir, ref string) (Results, runner.OutputPaths, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == LatestRef {
		latest, err := findLatestRunID(outputDir)
		if err != nil {
			return Results{}, runner.OutputPaths{}, err
		}
		ref = latest
	}
	paths, err := runner.NewOutputPaths(outputDir, ref)
	if err != nil {
		return Results{}, runner.OutputPaths{}, err
	}
	results, err := LoadResults(paths.ResultsPath())
	if errors.Is(err, os.ErrNotExist) {
		return Results{}, runner.OutputPaths{}, fmt.Errorf("run %s not found", ref)
	}
	return results, paths, err
}

func findLatestRunID(outputDir string) (string, error) {
	runIDs, err := listRunIDs(outputDir)
	if err != nil {
		return "", err
	}
	if len(runIDs) == 0 {
		return "", fmt.Errorf("no runs found in %s", outputDir)
	}
	return runIDs[len(runIDs)-1], nil
}

// ListRuns loads every results file under outputDir, newest first.
// Unreadable results files are skipped.
func ListRuns(outputDir string) ([]Results, error) {
	runIDs, err := listRunIDs(outputDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	runs := make([]Results, 0, len(runIDs))
	for i := len(runIDs) - 1; i >= 0; i-- {
		results, err := LoadResults(filepath.Join(outputDir, runIDs[i], "results.json"))
		if err != nil {
			continue
		}
		runs = append(runs, results)
	}
	return runs, nil
}

// listRunIDs returns the run directories holding a results file, oldest first.
func listRunIDs(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}
	runIDs := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(outputDir, entry.Name(), "results.json")); err == nil {
			runIDs = append(runIDs, entry.Name())
		}
	}
	sort.Strings(runIDs)
	return runIDs, nil
}
