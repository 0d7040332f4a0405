package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1d1d1f}
table{border-collapse:collapse;margin:0.5rem 0 1.5rem}
th,td{border:1px solid #d0d0d5;padding:0.3rem 0.6rem;text-align:left;vertical-align:top}
th{background:#f3f3f6}
pre{background:#f7f7f9;padding:0.75rem;white-space:pre-wrap}
.success{color:#1a7f37}.halted,.failed{color:#cf222e}.max_retries_exceeded{color:#9a6700}`

// ReportPage renders the full HTML document for one results file.
func ReportPage(results Results) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := fmt.Sprintf("promptopt %s %s", results.Kind, results.RunID)
		if err := write(w,
			"<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>", esc(title), "</title>",
			"<style>", pageStyle, "</style></head><body>",
		); err != nil {
			return err
		}
		if err := Header(results).Render(ctx, w); err != nil {
			return err
		}
		if results.Outcome != nil {
			for _, iteration := range results.Outcome.Iterations {
				if err := IterationSection(iteration).Render(ctx, w); err != nil {
					return err
				}
			}
		}
		if results.Evaluation != nil {
			if err := EvaluationSection(*results.Evaluation, results.Summary).Render(ctx, w); err != nil {
				return err
			}
		}
		return write(w, "</body></html>\n")
	})
}

// Header summarizes the run outcome.
func Header(results Results) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		status := results.Status()
		if err := write(w,
			"<h1>Run ", esc(results.RunID), "</h1>",
			"<p>Status: <strong class=\"", esc(status), "\">", esc(status), "</strong>",
			" &middot; Score: ", formatScore(results.FinalScore()),
			" &middot; Duration: ", esc(formatDuration(results.StartedAt, results.FinishedAt)), "</p>",
		); err != nil {
			return err
		}
		if docs := results.Docs; docs != nil {
			state := ""
			if docs.Dirty {
				state = " (dirty)"
			}
			if err := write(w, "<p>Docs: ", esc(docs.Name), " @ ", esc(docs.Branch), " ", esc(docs.ShortCommit()), state, "</p>"); err != nil {
				return err
			}
		}
		outcome := results.Outcome
		if outcome == nil {
			return nil
		}
		if err := write(w,
			"<p>Threshold: ", formatScore(results.Threshold),
			" &middot; Max retries: ", fmt.Sprint(results.MaxRetries),
			" &middot; Evaluations: ", fmt.Sprint(len(outcome.Iterations)), "</p>",
		); err != nil {
			return err
		}
		if outcome.Error != "" {
			if err := write(w, "<p class=\"halted\">Error: ", esc(outcome.Error), "</p>"); err != nil {
				return err
			}
		}
		return write(w, "<h2>Final prompt</h2><pre>", esc(outcome.State.Prompt), "</pre>")
	})
}

// IterationSection shows one evaluated prompt with its results and feedback.
func IterationSection(iteration loop.Iteration) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			"<section><h2>Iteration ", fmt.Sprint(iteration.Number), "</h2>",
			"<p>Score: ", formatScore(iteration.Score),
			" &middot; Valid: ", fmt.Sprint(iteration.Valid),
			" &middot; Decision: ", esc(string(iteration.Decision)), "</p>",
			"<details><summary>Prompt</summary><pre>", esc(iteration.Prompt), "</pre></details>",
		); err != nil {
			return err
		}
		if err := ResultsTable(iteration.Report).Render(ctx, w); err != nil {
			return err
		}
		if err := FailureList(iteration.Report.FailureReasons).Render(ctx, w); err != nil {
			return err
		}
		if iteration.Feedback != "" {
			if err := write(w, "<details><summary>Feedback</summary><pre>", esc(iteration.Feedback), "</pre></details>"); err != nil {
				return err
			}
		}
		return write(w, "</section>")
	})
}

// EvaluationSection shows a single benchmark pass.
func EvaluationSection(report runner.EvaluationReport, summary string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, "<section><h2>Overall Score: ", formatScore(report.OverallScore), "</h2>"); err != nil {
			return err
		}
		if err := ResultsTable(report).Render(ctx, w); err != nil {
			return err
		}
		if err := FailureList(report.FailureReasons).Render(ctx, w); err != nil {
			return err
		}
		if summary != "" {
			if err := write(w, "<h3>Failure Analysis</h3><pre>", esc(summary), "</pre>"); err != nil {
				return err
			}
		}
		return write(w, "</section>")
	})
}

// ResultsTable lists every question of a pass in benchmark order.
func ResultsTable(report runner.EvaluationReport) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(report.Results) == 0 {
			return write(w, "<p>No questions evaluated.</p>")
		}
		if err := write(w, "<table><thead><tr><th>#</th><th>Question</th><th>Score</th><th>Facts passed</th><th>Pass rate</th><th>Error</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for i, result := range report.Results {
			passed := result.PassedCount()
			facts := len(result.FactVerdicts)
			rate := 0.0
			if facts > 0 {
				rate = float64(passed) / float64(facts)
			}
			if err := write(w,
				"<tr><td>", fmt.Sprint(i+1), "</td>",
				"<td>", esc(result.Question), "</td>",
				"<td>", formatScore(result.Score), "</td>",
				"<td>", fmt.Sprintf("%d/%d", passed, facts), "</td>",
				"<td>", formatPassRate(rate), "%</td>",
				"<td>", esc(result.Error), "</td></tr>",
			); err != nil {
				return err
			}
		}
		return write(w, "</tbody></table>")
	})
}

// FailureList renders failure reasons in report order.
func FailureList(failures []runner.FailureReason) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(failures) == 0 {
			return nil
		}
		if err := write(w, "<h3>Failure Reasons</h3><ul>"); err != nil {
			return err
		}
		for _, failure := range failures {
			if err := write(w,
				"<li><strong>", esc(failure.Fact), "</strong> (", esc(failure.Question), "): ", esc(failure.Reason), "</li>",
			); err != nil {
				return err
			}
		}
		return write(w, "</ul>")
	})
}

// IndexPage lists runs with links to their reports under /runs/.
func IndexPage(runs []Results) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w,
			"<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>promptopt runs</title>",
			"<style>", pageStyle, "</style></head><body><h1>Runs</h1>",
		); err != nil {
			return err
		}
		if len(runs) == 0 {
			return write(w, "<p>No runs recorded.</p></body></html>\n")
		}
		if err := write(w, "<table><thead><tr><th>Run</th><th>Kind</th><th>Started</th><th>Status</th><th>Score</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, run := range runs {
			status := run.Status()
			if err := write(w,
				"<tr><td><a href=\"/runs/", esc(run.RunID), "\">", esc(run.RunID), "</a></td>",
				"<td>", esc(string(run.Kind)), "</td>",
				"<td>", esc(run.StartedAt.Format("2006-01-02 15:04:05")), "</td>",
				"<td class=\"", esc(status), "\">", esc(status), "</td>",
				"<td>", formatScore(run.FinalScore()), "</td></tr>",
			); err != nil {
				return err
			}
		}
		return write(w, "</tbody></table></body></html>\n")
	})
}

// RenderReportHTML renders the report into a string.
func RenderReportHTML(ctx context.Context, results Results) (string, error) {
	var builder strings.Builder
	if err := ReportPage(results).Render(ctx, &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// WriteReport renders the report to path, creating parent directories.
func WriteReport(ctx context.Context, path string, results Results) error {
	html, err := RenderReportHTML(ctx, results)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func write(w io.Writer, parts ...string) error {
	for _, part := range parts {
		if _, err := io.WriteString(w, part); err != nil {
			return err
		}
	}
	return nil
}
