package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptopt/internal/benchmark"
	"promptopt/internal/grading"
	"promptopt/internal/loop"
	"promptopt/internal/runner"
	"promptopt/internal/spec"
	"promptopt/internal/summarize"
)

const testConfig = `version: 1
output_dir: ./out
providers:
  - id: openrouter
    type: openrouter
agents:
  - {id: qa, provider: openrouter, model: test-model}
  - {id: judge, provider: openrouter, model: test-model}
  - {id: researcher, provider: openrouter, model: test-model}
  - {id: prompt_engineer, provider: openrouter, model: test-model}
  - {id: summarizer, provider: openrouter, model: test-model}
benchmark:
  max_items: 2
loop:
  initial_prompt: "P0"
  artifact_path: out/optimized_prompt.txt
history:
  path: .promptopt/history.duckdb
`

// writeConfig writes body to <dir>/.promptopt/config.yml and returns both paths.
func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	specPath := filepath.Join(dir, ".promptopt", "config.yml")
	if err := os.MkdirAll(filepath.Dir(specPath), 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	if err := os.WriteFile(specPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir, specPath
}

// stubItems needs both facts of each item; "P1" answers cover all of them.
func stubItems() []benchmark.Item {
	return []benchmark.Item{
		{Question: "What does OpenLLMetry instrument?", RequiredFacts: []string{"alpha", "beta"}},
		{Question: "Which exporters are supported?", RequiredFacts: []string{"gamma", "delta"}},
	}
}

type stubCalls struct {
	rewrites  int
	summaries int
}

// stubPipeline scores 0.25 for "P0" and 1.00 for "P1"; the rewriter returns rewrite.
func stubPipeline(rewrite string, calls *stubCalls) *pipeline {
	return &pipeline{
		Items: stubItems(),
		Answerer: func(prompt string) runner.AnswerFunc {
			return func(_ context.Context, _ string) (string, error) {
				if prompt == "P1" {
					return "alpha beta gamma delta", nil
				}
				return "alpha", nil
			}
		},
		Judge: grading.JudgeFunc(func(_ context.Context, _, answer, fact string) (grading.FactVerdict, error) {
			if strings.Contains(answer, fact) {
				return grading.FactVerdict{Fact: fact, Passed: true, Reason: "present"}, nil
			}
			return grading.FactVerdict{Fact: fact, Passed: false, Reason: "missing " + fact}, nil
		}),
		Rewriter: loop.RewriterFunc(func(_ context.Context, _, _ string, _ float64) (string, error) {
			calls.rewrites++
			if rewrite == "" {
				return "", errors.New("model unavailable")
			}
			return rewrite, nil
		}),
		Summarizer: summarize.CapabilityFunc(func(_ context.Context, text string) (string, error) {
			calls.summaries++
			return "Answers omit exporter names.", nil
		}),
	}
}

// useStubPipeline replaces capability construction for the test.
func useStubPipeline(t *testing.T, p *pipeline) {
	t.Helper()
	orig := buildPipeline
	buildPipeline = func(context.Context, spec.Config, pipelineDeps) (*pipeline, error) {
		return p, nil
	}
	t.Cleanup(func() { buildPipeline = orig })
}

// singleRunDir returns the only run directory under outputDir.
func singleRunDir(t *testing.T, outputDir string) string {
	t.Helper()
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) != 1 {
		t.Fatalf("expected one run dir, got %v", dirs)
	}
	return filepath.Join(outputDir, dirs[0])
}
