package history_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promptopt/internal/grading"
	"promptopt/internal/history"
	historytesting "promptopt/internal/history/testing"
	"promptopt/internal/loop"
	"promptopt/internal/runner"
	"promptopt/internal/testutil"
)

const testTimeout = 2 * time.Second

// reportWith builds a one-question report whose facts pass per the flags.
func reportWith(passed ...bool) runner.EvaluationReport {
	result := grading.QuestionResult{Question: "What is it?", Response: "answer"}
	ok := 0
	for i, p := range passed {
		verdict := grading.FactVerdict{Fact: string(rune('a' + i)), Passed: p, Reason: "checked"}
		if !p {
			verdict.Reason = "missing"
		}
		if p {
			ok++
		}
		result.FactVerdicts = append(result.FactVerdicts, verdict)
	}
	if len(passed) > 0 {
		result.Score = float64(ok) / float64(len(passed))
	}
	return runner.BuildReport([]grading.QuestionResult{result})
}

// TestSchemaObjectsExist verifies tables and views are created.
func TestSchemaObjectsExist(t *testing.T) {
	store := historytesting.OpenStore(t)
	ctx := testutil.Context(t, testTimeout)
	for _, table := range []string{"runs", "iterations", "failures", "v_run_scores"} {
		var count int
		if err := store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table).Scan(&count); err != nil {
			t.Fatalf("query information_schema: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected %s to exist", table)
		}
	}
	if err := history.EnsureSchema(ctx, store.DB()); err != nil {
		t.Fatalf("expected schema to be re-applicable, got %v", err)
	}
}

// TestRecordIterationStoresFailuresInOrder verifies iteration rows and failure ordering.
func TestRecordIterationStoresFailuresInOrder(t *testing.T) {
	store := historytesting.OpenStore(t)
	ctx := testutil.Context(t, testTimeout)
	if err := store.BeginRun(ctx, history.RunStart{RunID: "r1", StartedAt: time.Now(), InitialPrompt: "P0", Threshold: 0.8, MaxRetries: 3}); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := store.BeginRun(ctx, history.RunStart{RunID: "r1", StartedAt: time.Now(), InitialPrompt: "other"}); err != nil {
		t.Fatalf("expected repeated begin to be a no-op, got %v", err)
	}
	report := reportWith(false, true, false)
	err := store.RecordIteration(ctx, history.IterationRecord{
		RunID:      "r1",
		Number:     1,
		Prompt:     "P0",
		Score:      report.OverallScore,
		RetryCount: 1,
		Questions:  1,
		Elapsed:    1500 * time.Millisecond,
		RecordedAt: time.Now(),
		Failures:   report.FailureReasons,
		Report:     &report,
	})
	if err != nil {
		t.Fatalf("record iteration: %v", err)
	}
	if err := store.SetDecision(ctx, "r1", 1, "optimize"); err != nil {
		t.Fatalf("set decision: %v", err)
	}

	iterations, err := store.ListIterations(ctx, "r1")
	if err != nil {
		t.Fatalf("list iterations: %v", err)
	}
	if len(iterations) != 1 {
		t.Fatalf("expected one iteration, got %d", len(iterations))
	}
	got := iterations[0]
	if got.Decision != "optimize" || got.PromptHash != history.PromptFingerprint("P0") || got.Elapsed != 1500*time.Millisecond {
		t.Fatalf("unexpected iteration %+v", got)
	}
	failures, err := store.ListFailures(ctx, "r1", 1)
	if err != nil {
		t.Fatalf("list failures: %v", err)
	}
	if len(failures) != 2 || failures[0].Fact != "a" || failures[1].Fact != "c" {
		t.Fatalf("unexpected failures %+v", failures)
	}
	loaded, err := store.LoadReport(ctx, "r1", 1)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.OverallScore != report.OverallScore || len(loaded.Results) != 1 {
		t.Fatalf("unexpected report %+v", loaded)
	}
	run, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.InitialPrompt != "P0" || run.Iterations != 1 || run.FinishedAt != nil {
		t.Fatalf("unexpected run %+v", run)
	}
}

// TestGetRunNotFound verifies the sentinel for unknown run ids.
func TestGetRunNotFound(t *testing.T) {
	store := historytesting.OpenStore(t)
	_, err := store.GetRun(testutil.Context(t, testTimeout), "missing")
	if !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

// TestRecorderFollowsLoopRun verifies a retrying run is stored end to end.
func TestRecorderFollowsLoopRun(t *testing.T) {
	store := historytesting.OpenStore(t)
	ctx := testutil.Context(t, testTimeout)
	recorder := history.NewRecorder(ctx, store, loop.DefaultPolicy(), nil)

	scores := []runner.EvaluationReport{reportWith(false, true), reportWith(true, true)}
	calls := 0
	l := loop.New(
		loop.EvaluatorFunc(func(context.Context, string) (runner.EvaluationReport, error) {
			report := scores[calls]
			calls++
			return report, nil
		}),
		loop.RewriterFunc(func(_ context.Context, prompt, _ string, _ float64) (string, error) {
			return prompt + " v2", nil
		}),
		loop.WithInitialPrompt("P0"),
		loop.WithRunID("run-1"),
		loop.WithObserver(recorder),
		loop.WithArtifactWriter(loop.FileArtifact{Path: filepath.Join(t.TempDir(), "optimized_prompt.txt")}),
	)
	outcome, err := l.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	recorder.Finish("run-1", outcome)
	if err := recorder.Err(); err != nil {
		t.Fatalf("recorder errors: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Termination != string(loop.TerminationSuccess) || run.FinalPrompt != "P0 v2" || run.Iterations != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.FinalScore == nil || *run.FinalScore != 1 || run.FinishedAt == nil {
		t.Fatalf("expected final score and finish time, got %+v", run)
	}
	iterations, err := store.ListIterations(ctx, "run-1")
	if err != nil {
		t.Fatalf("list iterations: %v", err)
	}
	if len(iterations) != 2 {
		t.Fatalf("expected two iterations, got %d", len(iterations))
	}
	if iterations[0].Decision != string(loop.DecisionOptimize) || iterations[1].Decision != string(loop.DecisionSuccess) {
		t.Fatalf("unexpected decisions %q %q", iterations[0].Decision, iterations[1].Decision)
	}
	if iterations[0].Prompt != "P0" || iterations[1].RetryCount != 2 {
		t.Fatalf("unexpected iterations %+v", iterations)
	}
}

// TestRecorderMarksHaltedRun verifies a rewrite failure leaves an error and no termination.
func TestRecorderMarksHaltedRun(t *testing.T) {
	store := historytesting.OpenStore(t)
	ctx := testutil.Context(t, testTimeout)
	recorder := history.NewRecorder(ctx, store, loop.DefaultPolicy(), nil)

	l := loop.New(
		loop.EvaluatorFunc(func(context.Context, string) (runner.EvaluationReport, error) {
			return reportWith(false), nil
		}),
		loop.RewriterFunc(func(context.Context, string, string, float64) (string, error) {
			return "", errors.New("provider down")
		}),
		loop.WithRunID("run-2"),
		loop.WithObserver(recorder),
	)
	outcome, err := l.Run(ctx)
	if !errors.Is(err, loop.ErrRewriteUnavailable) {
		t.Fatalf("expected rewrite unavailable, got %v", err)
	}
	recorder.Finish("run-2", outcome)

	run, err := store.GetRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Termination != "" || run.Error == "" || run.Iterations != 1 {
		t.Fatalf("expected halted run, got %+v", run)
	}
}

// TestRecorderFinishKeepsPhaseHalt verifies a run closed by a failed phase is not rewritten by Finish.
func TestRecorderFinishKeepsPhaseHalt(t *testing.T) {
	store := historytesting.OpenStore(t)
	ctx := testutil.Context(t, testTimeout)
	recorder := history.NewRecorder(ctx, store, loop.DefaultPolicy(), nil)

	l := loop.New(
		loop.EvaluatorFunc(func(context.Context, string) (runner.EvaluationReport, error) {
			return reportWith(false), nil
		}),
		loop.RewriterFunc(func(context.Context, string, string, float64) (string, error) {
			return "", errors.New("provider down")
		}),
		loop.WithRunID("run-3"),
		loop.WithObserver(recorder),
	)
	outcome, _ := l.Run(ctx)
	closed, err := store.GetRun(ctx, "run-3")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if closed.FinishedAt == nil {
		t.Fatalf("expected the optimizing halt to close the run")
	}

	time.Sleep(5 * time.Millisecond)
	outcome.Error = "reported later"
	recorder.Finish("run-3", outcome)

	run, err := store.GetRun(ctx, "run-3")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Error != closed.Error || !run.FinishedAt.Equal(*closed.FinishedAt) {
		t.Fatalf("expected run to keep %q at %v, got %q at %v", closed.Error, closed.FinishedAt, run.Error, run.FinishedAt)
	}
}

// TestRecorderFinishClosesArtifactFailure verifies a halt after the last phase is still recorded.
func TestRecorderFinishClosesArtifactFailure(t *testing.T) {
	store := historytesting.OpenStore(t)
	ctx := testutil.Context(t, testTimeout)
	recorder := history.NewRecorder(ctx, store, loop.DefaultPolicy(), nil)

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	l := loop.New(
		loop.EvaluatorFunc(func(context.Context, string) (runner.EvaluationReport, error) {
			return reportWith(true), nil
		}),
		loop.RewriterFunc(func(_ context.Context, prompt, _ string, _ float64) (string, error) {
			return prompt, nil
		}),
		loop.WithRunID("run-4"),
		loop.WithObserver(recorder),
		loop.WithArtifactWriter(loop.FileArtifact{Path: filepath.Join(blocker, "out", "prompt.txt")}),
	)
	outcome, err := l.Run(ctx)
	if err == nil {
		t.Fatalf("expected artifact write to fail")
	}
	recorder.Finish("run-4", outcome)

	run, err := store.GetRun(ctx, "run-4")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.FinishedAt == nil || run.Termination != "" || run.Error != outcome.Error {
		t.Fatalf("expected halted run with artifact error, got %+v", run)
	}
}

// TestOpenPersistsAcrossReopen verifies file-backed history survives a reopen.
func TestOpenPersistsAcrossReopen(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	path := filepath.Join(t.TempDir(), "nested", "history.duckdb")
	store, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.BeginRun(ctx, history.RunStart{RunID: "persisted", StartedAt: time.Now(), InitialPrompt: "P"}); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "persisted" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

// TestPromptFingerprintIgnoresSurroundingSpace verifies hashing is whitespace-stable.
func TestPromptFingerprintIgnoresSurroundingSpace(t *testing.T) {
	if history.PromptFingerprint("P0\n") != history.PromptFingerprint("  P0") {
		t.Fatalf("expected trimmed prompts to share a fingerprint")
	}
	if len(history.PromptFingerprint("x")) != 16 {
		t.Fatalf("unexpected fingerprint length")
	}
}
