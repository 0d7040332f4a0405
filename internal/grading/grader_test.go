package grading

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// containsJudge passes a fact when the answer mentions it verbatim.
func containsJudge() FactJudge {
	return JudgeFunc(func(_ context.Context, _, answer, fact string) (FactVerdict, error) {
		if strings.Contains(answer, fact) {
			return FactVerdict{Passed: true, Reason: "mentioned"}, nil
		}
		return FactVerdict{Passed: false, Reason: "missing " + fact}, nil
	})
}

// TestGradeScoresPassedFraction verifies score is passed/total with verdicts in fact order.
func TestGradeScoresPassedFraction(t *testing.T) {
	grader := NewGrader(containsJudge())
	facts := []string{"alpha", "beta", "gamma"}
	result, err := grader.Grade(context.Background(), "q", "alpha and gamma", facts)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if len(result.FactVerdicts) != len(facts) {
		t.Fatalf("expected %d verdicts, got %d", len(facts), len(result.FactVerdicts))
	}
	for i, fact := range facts {
		if result.FactVerdicts[i].Fact != fact {
			t.Fatalf("verdict %d: expected fact %q, got %q", i, fact, result.FactVerdicts[i].Fact)
		}
	}
	if result.Score != 2.0/3.0 {
		t.Fatalf("expected score 2/3, got %v", result.Score)
	}
	if result.PassedCount() != 2 {
		t.Fatalf("expected 2 passed, got %d", result.PassedCount())
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].Fact != "beta" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

// TestGradeEmptyFactsIsVacuous verifies an empty fact list scores 1.0 without judge calls.
func TestGradeEmptyFactsIsVacuous(t *testing.T) {
	var calls atomic.Int32
	judge := JudgeFunc(func(context.Context, string, string, string) (FactVerdict, error) {
		calls.Add(1)
		return FactVerdict{}, nil
	})
	result, err := NewGrader(judge).Grade(context.Background(), "q", "", nil)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if result.Score != 1.0 {
		t.Fatalf("expected vacuous score 1.0, got %v", result.Score)
	}
	if len(result.FactVerdicts) != 0 {
		t.Fatalf("expected no verdicts, got %d", len(result.FactVerdicts))
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no judge calls, got %d", calls.Load())
	}
}

// TestGradeConcurrentPreservesOrder verifies completion order does not leak into verdict order.
func TestGradeConcurrentPreservesOrder(t *testing.T) {
	facts := []string{"f1", "f2", "f3", "f4", "f5", "f6"}
	judge := JudgeFunc(func(_ context.Context, _, _, fact string) (FactVerdict, error) {
		// later facts finish first
		delay := time.Duration(len(facts)-int(fact[1]-'0')) * 5 * time.Millisecond
		time.Sleep(delay)
		return FactVerdict{Passed: fact == "f2" || fact == "f5", Reason: "r-" + fact}, nil
	})
	grader := NewGrader(judge, WithFactWorkers(4))
	for run := 0; run < 3; run++ {
		result, err := grader.Grade(context.Background(), "q", "a", facts)
		if err != nil {
			t.Fatalf("grade: %v", err)
		}
		for i, fact := range facts {
			verdict := result.FactVerdicts[i]
			if verdict.Fact != fact || verdict.Reason != "r-"+fact {
				t.Fatalf("run %d slot %d: unexpected verdict %+v", run, i, verdict)
			}
		}
		if result.Score != 2.0/6.0 {
			t.Fatalf("expected score 1/3, got %v", result.Score)
		}
	}
}

// TestGradeJudgeFailureFailsRemainingFacts verifies judge errors surface as ErrJudgmentUnavailable.
func TestGradeJudgeFailureFailsRemainingFacts(t *testing.T) {
	boom := errors.New("boom")
	judge := JudgeFunc(func(_ context.Context, _, _, fact string) (FactVerdict, error) {
		if fact == "second" {
			return FactVerdict{}, boom
		}
		return FactVerdict{Passed: true, Reason: "ok"}, nil
	})
	facts := []string{"first", "second", "third"}
	result, err := NewGrader(judge).Grade(context.Background(), "q", "a", facts)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrJudgmentUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped judgment error, got %v", err)
	}
	if len(result.FactVerdicts) != 3 {
		t.Fatalf("expected complete verdict list, got %d", len(result.FactVerdicts))
	}
	if !result.FactVerdicts[0].Passed {
		t.Fatalf("expected first fact to keep its verdict")
	}
	for _, verdict := range result.FactVerdicts[1:] {
		if verdict.Passed || verdict.Error == "" {
			t.Fatalf("expected failed-with-error verdict, got %+v", verdict)
		}
	}
	if result.Score != 1.0/3.0 {
		t.Fatalf("expected score 1/3, got %v", result.Score)
	}
	if result.Error == "" {
		t.Fatalf("expected result error to be recorded")
	}
}

// TestGradeKeepsExistingJudgmentError verifies already-tagged errors are not double wrapped.
func TestGradeKeepsExistingJudgmentError(t *testing.T) {
	judge := JudgeFunc(func(context.Context, string, string, string) (FactVerdict, error) {
		return FactVerdict{}, ErrJudgmentUnavailable
	})
	_, err := NewGrader(judge, WithFactWorkers(2)).Grade(context.Background(), "q", "a", []string{"x", "y"})
	if !errors.Is(err, ErrJudgmentUnavailable) {
		t.Fatalf("expected judgment error, got %v", err)
	}
	if strings.Count(err.Error(), ErrJudgmentUnavailable.Error()) != 1 {
		t.Fatalf("expected single tag, got %q", err.Error())
	}
}

// TestNewQuestionResultRejectsMismatch verifies the one-verdict-per-fact invariant.
func TestNewQuestionResultRejectsMismatch(t *testing.T) {
	_, err := NewQuestionResult("q", "a", []string{"x", "y"}, []FactVerdict{{Fact: "x"}})
	if !errors.Is(err, ErrPreconditionViolation) {
		t.Fatalf("expected precondition violation, got %v", err)
	}
}

// TestFailAll verifies every fact is failed with the cause attached.
func TestFailAll(t *testing.T) {
	cause := errors.New("qa down")
	result := FailAll("q", "", []string{"a", "b"}, cause)
	if result.Score != 0 {
		t.Fatalf("expected score 0, got %v", result.Score)
	}
	for _, verdict := range result.FactVerdicts {
		if verdict.Passed || verdict.Error != "qa down" {
			t.Fatalf("unexpected verdict %+v", verdict)
		}
	}
}
