package cli

import (
	"context"
	"fmt"
	"io"

	"promptopt/internal/logging"
	"promptopt/internal/report"
	"promptopt/internal/runner"
	"promptopt/internal/spec"
	"promptopt/internal/vcs"
)

// writeResults stores results.json and report.html under <outputDir>/<run-id>/.
func writeResults(ctx context.Context, outputDir string, results report.Results) (runner.OutputPaths, error) {
	paths, err := runner.WriteResults(outputDir, results.RunID, results)
	if err != nil {
		return runner.OutputPaths{}, err
	}
	if err := report.WriteReport(context.WithoutCancel(ctx), paths.ReportPath(), results); err != nil {
		return runner.OutputPaths{}, err
	}
	return paths, nil
}

func printPaths(stdout io.Writer, paths runner.OutputPaths) {
	fmt.Fprintf(stdout, "Results: %s\n", paths.ResultsPath())
	fmt.Fprintf(stdout, "Report: %s\n", paths.ReportPath())
}

// snapshotDocs is a test seam for reading the docs repository state.
var snapshotDocs = vcs.SnapshotDir

// docsSnapshot records which commit of rag.docs_dir a run answered from.
func docsSnapshot(ctx context.Context, cfg spec.Config, logger logging.Logger) *vcs.Snapshot {
	if cfg.RAG.DocsDir == "" {
		return nil
	}
	snap, err := snapshotDocs(context.WithoutCancel(ctx), cfg.RAG.DocsDir)
	if err != nil {
		logger.Debug("docs repository state unavailable", "dir", cfg.RAG.DocsDir, "error", err)
		return nil
	}
	return &snap
}
