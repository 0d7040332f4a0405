package report

import (
	"time"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
	"promptopt/internal/vcs"
)

// Kind names the command that produced a results file.
type Kind string

const (
	KindRun  Kind = "run"
	KindEval Kind = "eval"
)

// Results is the results.json payload written for every run and eval.
type Results struct {
	RunID      string                   `json:"run_id"`
	Kind       Kind                     `json:"kind"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Threshold  float64                  `json:"threshold,omitempty"`
	MaxRetries int                      `json:"max_retries,omitempty"`
	Outcome    *loop.Outcome            `json:"outcome,omitempty"`
	Evaluation *runner.EvaluationReport `json:"evaluation,omitempty"`
	Summary    string                   `json:"summary,omitempty"`
	// Docs is the repository state of rag.docs_dir, when it is under git.
	Docs *vcs.Snapshot `json:"docs,omitempty"`
}

// FromOutcome captures a finished or halted loop run.
func FromOutcome(runID string, startedAt, finishedAt time.Time, policy loop.Policy, outcome loop.Outcome) Results {
	return Results{
		RunID:      runID,
		Kind:       KindRun,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		Threshold:  policy.Threshold,
		MaxRetries: policy.MaxRetries,
		Outcome:    &outcome,
	}
}

// FromEvaluation captures a single benchmark pass and its optional failure summary.
func FromEvaluation(runID string, startedAt, finishedAt time.Time, report runner.EvaluationReport, summary string) Results {
	return Results{
		RunID:      runID,
		Kind:       KindEval,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		Evaluation: &report,
		Summary:    summary,
	}
}

// FinalScore is the score the results are remembered by.
func (r Results) FinalScore() float64 {
	switch {
	case r.Outcome != nil:
		return r.Outcome.State.Score
	case r.Evaluation != nil:
		return r.Evaluation.OverallScore
	default:
		return 0
	}
}

// Status is a short label for headings and listings.
func (r Results) Status() string {
	if r.Kind == KindEval {
		return "evaluated"
	}
	if r.Outcome == nil {
		return "unknown"
	}
	if r.Outcome.Terminated() {
		return string(r.Outcome.Termination)
	}
	return "halted"
}
