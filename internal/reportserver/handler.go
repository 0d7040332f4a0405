package reportserver

import (
	"errors"
	"net/http"
	"strings"

	"promptopt/internal/logging"
	"promptopt/internal/report"
)

// NewHandler builds the HTTP handler for the run index, run reports and the history file.
func NewHandler(cfg Config, logger logging.Logger) (http.Handler, error) {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, errors.New("reportserver: output dir is required")
	}
	logger = logging.OrNop(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", serveIndex(cfg.OutputDir, logger))
	mux.HandleFunc("GET /runs/{id}", serveRun(cfg.OutputDir, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if cfg.HistoryPath != "" {
		mux.Handle("GET /data/history.duckdb", serveDatabase(cfg.HistoryPath))
	}
	return mux, nil
}

// serveIndex lists the runs found in the output directory.
func serveIndex(outputDir string, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := report.ListRuns(outputDir)
		if err != nil {
			logger.Error("list runs", "error", err)
			http.Error(w, "list runs failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.IndexPage(runs).Render(r.Context(), w); err != nil {
			logger.Error("render index", "error", err)
		}
	}
}

// serveRun renders one run's report from its results file.
func serveRun(outputDir string, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := r.PathValue("id")
		if runID == report.LatestRef {
			http.NotFound(w, r)
			return
		}
		results, _, err := report.ResolveRun(outputDir, runID)
		if err != nil {
			logger.Debug("resolve run", "run_id", runID, "error", err)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.ReportPage(results).Render(r.Context(), w); err != nil {
			logger.Error("render report", "run_id", runID, "error", err)
		}
	}
}

// serveDatabase serves the DuckDB history file for offline analysis.
func serveDatabase(dbPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="history.duckdb"`)
		http.ServeFile(w, r, dbPath)
	})
}
