//go:build cucumber
// +build cucumber

package cucumber

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"promptopt/internal/benchmark"
	"promptopt/internal/grading"
	"promptopt/internal/runner"
)

// runnerState holds one benchmark pass with a keyword judge.
type runnerState struct {
	items      []benchmark.Item
	answer     string
	brokenFact string
	report     runner.EvaluationReport
	runErr     error
}

// InitializeRunnerScenario wires benchmark runner steps.
func InitializeRunnerScenario(ctx *godog.ScenarioContext) {
	state := &runnerState{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*state = runnerState{}
		return ctx, nil
	})

	ctx.Step(`^a benchmark:$`, state.aBenchmark)
	ctx.Step(`^every answer is "([^"]*)"$`, state.everyAnswerIs)
	ctx.Step(`^the judge cannot reach a verdict on "([^"]+)"$`, state.theJudgeFailsOn)
	ctx.Step(`^the benchmark runs with (\d+) workers? and policy "([^"]+)"$`, state.theBenchmarkRuns)
	ctx.Step(`^the overall score is ([0-9.]+)$`, state.theOverallScoreIs)
	ctx.Step(`^the failure reasons are:$`, state.theFailureReasonsAre)
	ctx.Step(`^(\d+) items? failed$`, state.itemsFailed)
	ctx.Step(`^the pass is aborted$`, state.thePassIsAborted)
}

func (s *runnerState) aBenchmark(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("row %d: expected question and facts", i)
		}
		var facts []string
		for _, fact := range strings.Split(row.Cells[1].Value, ",") {
			facts = append(facts, strings.TrimSpace(fact))
		}
		s.items = append(s.items, benchmark.Item{Question: row.Cells[0].Value, RequiredFacts: facts})
	}
	return nil
}

func (s *runnerState) everyAnswerIs(answer string) error {
	s.answer = answer
	return nil
}

func (s *runnerState) theJudgeFailsOn(fact string) error {
	s.brokenFact = fact
	return nil
}

func (s *runnerState) judge(_ context.Context, _, answer, fact string) (grading.FactVerdict, error) {
	if fact == s.brokenFact {
		return grading.FactVerdict{}, errors.New("judge timed out")
	}
	if strings.Contains(answer, fact) {
		return grading.FactVerdict{Fact: fact, Passed: true, Reason: "mentioned"}, nil
	}
	return grading.FactVerdict{Fact: fact, Passed: false, Reason: fact + " is not mentioned"}, nil
}

func (s *runnerState) theBenchmarkRuns(workers int, policyName string) error {
	policy, err := runner.ParseErrorPolicy(policyName)
	if err != nil {
		return err
	}
	grader := grading.NewGrader(grading.JudgeFunc(s.judge), grading.WithFactWorkers(workers))
	r := runner.New(grader, runner.WithWorkers(workers), runner.WithErrorPolicy(policy))
	answer := func(context.Context, string) (string, error) { return s.answer, nil }
	s.report, s.runErr = r.Run(context.Background(), answer, s.items)
	return nil
}

func (s *runnerState) theOverallScoreIs(expected float64) error {
	if s.runErr != nil {
		return fmt.Errorf("pass failed: %v", s.runErr)
	}
	if math.Abs(s.report.OverallScore-expected) > 1e-9 {
		return fmt.Errorf("expected score %.4f, got %.4f", expected, s.report.OverallScore)
	}
	return nil
}

func (s *runnerState) theFailureReasonsAre(table *godog.Table) error {
	expected := make([]runner.FailureReason, 0, len(table.Rows))
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		expected = append(expected, runner.FailureReason{Question: row.Cells[0].Value, Fact: row.Cells[1].Value})
	}
	got := s.report.FailureReasons
	if len(got) != len(expected) {
		return fmt.Errorf("expected %d failure reasons, got %d: %+v", len(expected), len(got), got)
	}
	for i := range expected {
		if got[i].Question != expected[i].Question || got[i].Fact != expected[i].Fact {
			return fmt.Errorf("failure %d: expected %s/%s, got %s/%s", i+1,
				expected[i].Question, expected[i].Fact, got[i].Question, got[i].Fact)
		}
	}
	return nil
}

func (s *runnerState) itemsFailed(count string) error {
	n, err := strconv.Atoi(count)
	if err != nil {
		return err
	}
	if s.report.ItemErrors != n {
		return fmt.Errorf("expected %d item errors, got %d", n, s.report.ItemErrors)
	}
	return nil
}

func (s *runnerState) thePassIsAborted() error {
	if s.runErr == nil {
		return errors.New("expected the pass to fail")
	}
	if !errors.Is(s.runErr, grading.ErrJudgmentUnavailable) {
		return fmt.Errorf("expected a judgment error, got %v", s.runErr)
	}
	return nil
}
