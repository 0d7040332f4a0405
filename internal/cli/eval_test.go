package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptopt/internal/report"
)

// TestEvalCommandPrintsScoreAndAnalysis verifies a single pass with failure summary.
func TestEvalCommandPrintsScoreAndAnalysis(t *testing.T) {
	dir, specPath := writeConfig(t, testConfig)
	calls := &stubCalls{}
	useStubPipeline(t, stubPipeline("P1", calls))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"eval", "--spec", specPath, "--ui", "plain", "--summarize"}, &stdout, &stderr)
	if code != ExitOK {
		t.Fatalf("unexpected exit %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{
		"Evaluating 2 benchmark items",
		"Overall Score: 0.25",
		"Analyzing failure patterns...",
		"Failure Analysis:\nAnswers omit exporter names.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if calls.rewrites != 0 {
		t.Fatalf("eval must not rewrite, got %d calls", calls.rewrites)
	}

	runDir := singleRunDir(t, filepath.Join(dir, "out"))
	results, err := report.LoadResults(filepath.Join(runDir, "results.json"))
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	if results.Kind != report.KindEval || results.Summary != "Answers omit exporter names." {
		t.Fatalf("unexpected eval results %+v", results)
	}
	if len(results.Evaluation.FailureReasons) != 3 {
		t.Fatalf("expected 3 failure reasons, got %d", len(results.Evaluation.FailureReasons))
	}
}

// TestEvalCommandPromptFile verifies --prompt-file replaces the configured prompt.
func TestEvalCommandPromptFile(t *testing.T) {
	dir, specPath := writeConfig(t, testConfig)
	calls := &stubCalls{}
	useStubPipeline(t, stubPipeline("P1", calls))
	promptPath := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(promptPath, []byte("P1\n"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"eval", "--spec", specPath, "--ui", "plain", "--prompt-file", promptPath, "--summarize"}, &stdout, &stderr)
	if code != ExitOK {
		t.Fatalf("unexpected exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Overall Score: 1.00") {
		t.Fatalf("expected perfect score, got:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "No failure reasons to analyze.") {
		t.Fatalf("expected no analysis, got:\n%s", stdout.String())
	}
	if calls.summaries != 0 {
		t.Fatalf("summarizer must not run without failures, got %d calls", calls.summaries)
	}
}

// TestEvalCommandRequiresSummarizer verifies --summarize fails without a summarizer agent.
func TestEvalCommandRequiresSummarizer(t *testing.T) {
	_, specPath := writeConfig(t, testConfig)
	p := stubPipeline("P1", &stubCalls{})
	p.Summarizer = nil
	useStubPipeline(t, p)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"eval", "--spec", specPath, "--ui", "plain", "--summarize"}, &stdout, &stderr)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(stderr.String(), "summarizer") {
		t.Fatalf("expected summarizer error, got %q", stderr.String())
	}
}

// TestEvalPromptFallsBackToDefault verifies the default template is used without a configured prompt.
func TestEvalPromptFallsBackToDefault(t *testing.T) {
	_, specPath := writeConfig(t, strings.Replace(testConfig, "  initial_prompt: \"P0\"\n", "", 1))
	cfg, ok := loadConfig(specPath, &bytes.Buffer{})
	if !ok {
		t.Fatalf("load config")
	}
	prompt, err := evalPrompt(cfg, "")
	if err != nil {
		t.Fatalf("eval prompt: %v", err)
	}
	if !strings.Contains(prompt, "{context}") || !strings.Contains(prompt, "{question}") {
		t.Fatalf("expected default template, got %q", prompt)
	}
}
