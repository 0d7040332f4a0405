//go:build cucumber
// +build cucumber

package cucumber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

const initialPrompt = "initial prompt"

// loopState scripts the evaluator and rewriter around one loop run.
type loopState struct {
	scores      []float64
	rewrite     string
	rewriteErr  error
	evaluated   []string
	feedback    []string
	rewrites    int
	artifactDir string
	outcome     loop.Outcome
	runErr      error
}

// InitializeLoopScenario wires loop steps.
func InitializeLoopScenario(ctx *godog.ScenarioContext) {
	state := &loopState{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "promptopt-loop-*")
		if err != nil {
			return ctx, err
		}
		*state = loopState{artifactDir: dir}
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		_ = os.RemoveAll(state.artifactDir)
		return ctx, nil
	})

	ctx.Step(`^the evaluator scores prompts ([0-9., ]+)$`, state.theEvaluatorScores)
	ctx.Step(`^the rewriter answers "([^"]*)"$`, state.theRewriterAnswers)
	ctx.Step(`^the rewriter is unavailable$`, state.theRewriterIsUnavailable)
	ctx.Step(`^the loop runs with threshold ([0-9.]+) and max retries (\d+)$`, state.theLoopRuns)
	ctx.Step(`^the loop terminates with "([^"]+)"$`, state.theLoopTerminatesWith)
	ctx.Step(`^the loop halts with an error containing "([^"]+)"$`, state.theLoopHalts)
	ctx.Step(`^the prompt was evaluated (\d+) times?$`, state.thePromptWasEvaluated)
	ctx.Step(`^the rewriter was called (\d+) times?$`, state.theRewriterWasCalled)
	ctx.Step(`^the final prompt is "([^"]*)"$`, state.theFinalPromptIs)
	ctx.Step(`^the artifact reads:$`, state.theArtifactReads)
	ctx.Step(`^no artifact is written$`, state.noArtifactIsWritten)
	ctx.Step(`^the rewriter received feedback:$`, state.theRewriterReceivedFeedback)
}

func (s *loopState) theEvaluatorScores(list string) error {
	for _, part := range strings.Split(list, ",") {
		score, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("parse score %q: %w", part, err)
		}
		s.scores = append(s.scores, score)
	}
	return nil
}

func (s *loopState) theRewriterAnswers(prompt string) error {
	s.rewrite = prompt
	return nil
}

func (s *loopState) theRewriterIsUnavailable() error {
	s.rewriteErr = errors.New("model unavailable")
	return nil
}

// evaluate returns the next scripted score; the last score repeats.
func (s *loopState) evaluate(_ context.Context, prompt string) (runner.EvaluationReport, error) {
	if len(s.scores) == 0 {
		return runner.EvaluationReport{}, errors.New("no scripted scores")
	}
	index := min(len(s.evaluated), len(s.scores)-1)
	s.evaluated = append(s.evaluated, prompt)
	report := runner.EvaluationReport{OverallScore: s.scores[index], FailureReasons: []runner.FailureReason{}}
	if report.OverallScore < 1 {
		report.FailureReasons = append(report.FailureReasons, runner.FailureReason{
			Question: "q1",
			Fact:     "f1",
			Reason:   "missing fact",
		})
	}
	return report, nil
}

func (s *loopState) rewriteFn(_ context.Context, _, feedback string, _ float64) (string, error) {
	s.rewrites++
	s.feedback = append(s.feedback, feedback)
	if s.rewriteErr != nil {
		return "", s.rewriteErr
	}
	return s.rewrite, nil
}

func (s *loopState) theLoopRuns(threshold float64, maxRetries int) error {
	l := loop.New(loop.EvaluatorFunc(s.evaluate), loop.RewriterFunc(s.rewriteFn),
		loop.WithThreshold(threshold),
		loop.WithMaxRetries(maxRetries),
		loop.WithInitialPrompt(initialPrompt),
		loop.WithArtifactWriter(loop.FileArtifact{Path: s.artifactPath()}),
	)
	s.outcome, s.runErr = l.Run(context.Background())
	return nil
}

func (s *loopState) artifactPath() string {
	return filepath.Join(s.artifactDir, "optimized_prompt.txt")
}

func (s *loopState) theLoopTerminatesWith(termination string) error {
	if s.runErr != nil {
		return fmt.Errorf("loop halted: %v", s.runErr)
	}
	if string(s.outcome.Termination) != termination {
		return fmt.Errorf("expected termination %q, got %q", termination, s.outcome.Termination)
	}
	return nil
}

func (s *loopState) theLoopHalts(fragment string) error {
	if s.runErr == nil || !strings.Contains(s.runErr.Error(), fragment) {
		return fmt.Errorf("expected error containing %q, got %v", fragment, s.runErr)
	}
	if s.outcome.Terminated() {
		return fmt.Errorf("halted loop must not carry a termination, got %q", s.outcome.Termination)
	}
	return nil
}

func (s *loopState) thePromptWasEvaluated(times int) error {
	if len(s.evaluated) != times {
		return fmt.Errorf("expected %d evaluations, got %d", times, len(s.evaluated))
	}
	return nil
}

func (s *loopState) theRewriterWasCalled(times int) error {
	if s.rewrites != times {
		return fmt.Errorf("expected %d rewrites, got %d", times, s.rewrites)
	}
	return nil
}

func (s *loopState) theFinalPromptIs(prompt string) error {
	if s.outcome.State.Prompt != prompt {
		return fmt.Errorf("expected final prompt %q, got %q", prompt, s.outcome.State.Prompt)
	}
	return nil
}

func (s *loopState) theArtifactReads(doc *godog.DocString) error {
	data, err := os.ReadFile(s.artifactPath())
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if string(data) != doc.Content {
		return fmt.Errorf("unexpected artifact %q, want %q", data, doc.Content)
	}
	return nil
}

func (s *loopState) noArtifactIsWritten() error {
	if _, err := os.Stat(s.artifactPath()); !os.IsNotExist(err) {
		return fmt.Errorf("expected no artifact, got %v", err)
	}
	return nil
}

func (s *loopState) theRewriterReceivedFeedback(doc *godog.DocString) error {
	if len(s.feedback) == 0 {
		return errors.New("rewriter was never called")
	}
	if s.feedback[0] != doc.Content {
		return fmt.Errorf("unexpected feedback %q, want %q", s.feedback[0], doc.Content)
	}
	return nil
}
