package runner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"promptopt/internal/benchmark"
	"promptopt/internal/grading"
)

// keywordJudge passes a fact when the answer contains it.
var keywordJudge = grading.JudgeFunc(func(_ context.Context, _, answer, fact string) (grading.FactVerdict, error) {
	if strings.Contains(answer, fact) {
		return grading.FactVerdict{Passed: true, Reason: "present"}, nil
	}
	return grading.FactVerdict{Passed: false, Reason: "missing " + fact}, nil
})

// cannedAnswers returns a fixed answer per question and counts calls.
type cannedAnswers struct {
	answers map[string]string
	calls   atomic.Int32
}

func (c *cannedAnswers) answer(_ context.Context, question string) (string, error) {
	c.calls.Add(1)
	return c.answers[question], nil
}

func twoItems() []benchmark.Item {
	return []benchmark.Item{
		{Question: "A?", RequiredFacts: []string{"a1", "a2", "a3"}},
		{Question: "B?", RequiredFacts: []string{"b1", "b2", "b3"}},
	}
}

// TestRunAveragesQuestionScores verifies the mean score and flattened failures.
func TestRunAveragesQuestionScores(t *testing.T) {
	qa := &cannedAnswers{answers: map[string]string{"A?": "a1 a2 a3", "B?": "nothing"}}
	r := New(grading.NewGrader(keywordJudge))
	report, err := r.Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.OverallScore != 0.5 {
		t.Fatalf("expected score 0.5, got %v", report.OverallScore)
	}
	if len(report.FailureReasons) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(report.FailureReasons))
	}
	for i, failure := range report.FailureReasons {
		if failure.Question != "B?" {
			t.Fatalf("failure %d references %q", i, failure.Question)
		}
		if failure.Fact != twoItems()[1].RequiredFacts[i] {
			t.Fatalf("failure %d out of fact order: %q", i, failure.Fact)
		}
	}
	if report.Valid() {
		t.Fatalf("expected report with failures to be invalid")
	}
}

// TestRunUnweightedMean verifies items count equally regardless of fact count.
func TestRunUnweightedMean(t *testing.T) {
	items := []benchmark.Item{
		{Question: "one", RequiredFacts: []string{"x"}},
		{Question: "five", RequiredFacts: []string{"p", "q", "r", "s", "t"}},
	}
	qa := &cannedAnswers{answers: map[string]string{"one": "x", "five": "p"}}
	report, err := New(grading.NewGrader(keywordJudge)).Run(context.Background(), qa.answer, items)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := (1.0 + 0.2) / 2
	if report.OverallScore != want {
		t.Fatalf("expected %v, got %v", want, report.OverallScore)
	}
}

// TestRunZeroMaxItems verifies a zero cap yields the empty sentinel without calls.
func TestRunZeroMaxItems(t *testing.T) {
	qa := &cannedAnswers{}
	var judgeCalls atomic.Int32
	judge := grading.JudgeFunc(func(context.Context, string, string, string) (grading.FactVerdict, error) {
		judgeCalls.Add(1)
		return grading.FactVerdict{}, nil
	})
	report, err := New(grading.NewGrader(judge), WithMaxItems(0)).Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.OverallScore != 0.0 {
		t.Fatalf("expected 0.0, got %v", report.OverallScore)
	}
	if len(report.FailureReasons) != 0 || len(report.Results) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if qa.calls.Load() != 0 || judgeCalls.Load() != 0 {
		t.Fatalf("expected no capability calls, got qa=%d judge=%d", qa.calls.Load(), judgeCalls.Load())
	}
}

// TestRunMaxItemsCap verifies only the first N items are evaluated.
func TestRunMaxItemsCap(t *testing.T) {
	qa := &cannedAnswers{answers: map[string]string{"A?": "a1 a2 a3"}}
	report, err := New(grading.NewGrader(keywordJudge), WithMaxItems(1)).Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 1 || report.OverallScore != 1.0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if qa.calls.Load() != 1 {
		t.Fatalf("expected 1 qa call, got %d", qa.calls.Load())
	}
}

// TestRunIsIdempotent verifies deterministic capabilities give identical reports.
func TestRunIsIdempotent(t *testing.T) {
	qa := &cannedAnswers{answers: map[string]string{"A?": "a1", "B?": "b2 b3"}}
	r := New(grading.NewGrader(keywordJudge, grading.WithFactWorkers(3)), WithWorkers(2))
	first, err := r.Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := r.Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical reports:\n%+v\n%+v", first, second)
	}
}

// TestRunConcurrentPreservesItemOrder verifies results follow input order, not completion order.
func TestRunConcurrentPreservesItemOrder(t *testing.T) {
	items := make([]benchmark.Item, 6)
	for i := range items {
		items[i] = benchmark.Item{Question: string(rune('a' + i)), RequiredFacts: []string{"never"}}
	}
	answer := func(_ context.Context, question string) (string, error) {
		time.Sleep(time.Duration('f'-question[0]) * 3 * time.Millisecond)
		return question, nil
	}
	report, err := New(grading.NewGrader(keywordJudge), WithWorkers(6)).Run(context.Background(), answer, items)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, result := range report.Results {
		if result.Question != items[i].Question || result.Response != items[i].Question {
			t.Fatalf("slot %d holds %q", i, result.Question)
		}
		if report.FailureReasons[i].Question != items[i].Question {
			t.Fatalf("failure %d holds %q", i, report.FailureReasons[i].Question)
		}
	}
}

// TestRunFailItemPolicy verifies a judge failure fails the item and the pass continues.
func TestRunFailItemPolicy(t *testing.T) {
	judge := grading.JudgeFunc(func(_ context.Context, question, answer, fact string) (grading.FactVerdict, error) {
		if fact == "a2" {
			return grading.FactVerdict{}, errors.New("judge offline")
		}
		return keywordJudge(context.Background(), question, answer, fact)
	})
	qa := &cannedAnswers{answers: map[string]string{"A?": "a1 a2 a3", "B?": "b1 b2 b3"}}
	report, err := New(grading.NewGrader(judge)).Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	first := report.Results[0]
	if len(first.FactVerdicts) != 3 {
		t.Fatalf("expected complete verdicts, got %d", len(first.FactVerdicts))
	}
	if !first.FactVerdicts[0].Passed || first.FactVerdicts[1].Passed || first.FactVerdicts[2].Passed {
		t.Fatalf("unexpected verdicts %+v", first.FactVerdicts)
	}
	if first.FactVerdicts[2].Error == "" {
		t.Fatalf("expected remaining fact to carry the error")
	}
	if report.Results[1].Score != 1.0 {
		t.Fatalf("expected second item to be graded normally")
	}
	if report.ItemErrors != 1 {
		t.Fatalf("expected 1 item error, got %d", report.ItemErrors)
	}
	if len(report.FailureReasons) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(report.FailureReasons))
	}
}

// TestRunFailFastPolicy verifies the first failure aborts the pass.
func TestRunFailFastPolicy(t *testing.T) {
	judge := grading.JudgeFunc(func(context.Context, string, string, string) (grading.FactVerdict, error) {
		return grading.FactVerdict{}, errors.New("judge offline")
	})
	qa := &cannedAnswers{answers: map[string]string{}}
	_, err := New(grading.NewGrader(judge), WithErrorPolicy(FailFast)).Run(context.Background(), qa.answer, twoItems())
	if !errors.Is(err, grading.ErrJudgmentUnavailable) {
		t.Fatalf("expected judgment unavailable, got %v", err)
	}
	if qa.calls.Load() != 1 {
		t.Fatalf("expected the pass to stop after the first item, got %d calls", qa.calls.Load())
	}
}

// TestRunAnswerFailureFailsItem verifies QA failures fail every fact of the item.
func TestRunAnswerFailureFailsItem(t *testing.T) {
	answer := func(_ context.Context, question string) (string, error) {
		if question == "A?" {
			return "", errors.New("retrieval down")
		}
		return "b1 b2 b3", nil
	}
	report, err := New(grading.NewGrader(keywordJudge)).Run(context.Background(), answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Results[0].Score != 0 || report.Results[0].Error == "" {
		t.Fatalf("expected failed item, got %+v", report.Results[0])
	}
	if report.OverallScore != 0.5 {
		t.Fatalf("expected 0.5, got %v", report.OverallScore)
	}
}

// recordingObserver captures progress callbacks.
type recordingObserver struct {
	mu     sync.Mutex
	total  int
	events []ItemEvent
	ended  bool
}

func (o *recordingObserver) OnBenchmarkStart(total int) { o.total = total }
func (o *recordingObserver) OnItemEvent(event ItemEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}
func (o *recordingObserver) OnBenchmarkEnd(EvaluationReport) { o.ended = true }

// TestRunEmitsProgress verifies progress events carry running pass rates.
func TestRunEmitsProgress(t *testing.T) {
	qa := &cannedAnswers{answers: map[string]string{"A?": "a1 a2 a3", "B?": "b1"}}
	observer := &recordingObserver{}
	withObserver, err := New(grading.NewGrader(keywordJudge), WithObserver(observer)).Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	without, err := New(grading.NewGrader(keywordJudge)).Run(context.Background(), qa.answer, twoItems())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(withObserver, without) {
		t.Fatalf("observer changed the report")
	}
	if observer.total != 2 || !observer.ended {
		t.Fatalf("expected start and end callbacks, got total=%d ended=%v", observer.total, observer.ended)
	}
	var graded []ItemEvent
	for _, event := range observer.events {
		if event.Type == ItemGraded {
			graded = append(graded, event)
		}
	}
	if len(graded) != 2 {
		t.Fatalf("expected 2 graded events, got %d", len(graded))
	}
	if graded[0].Index != 0 || graded[0].PassRate != 1.0 || graded[0].Completed != 1 {
		t.Fatalf("unexpected first graded event %+v", graded[0])
	}
	if graded[1].Index != 1 || graded[1].PassRate != 4.0/6.0 || graded[1].Completed != 2 {
		t.Fatalf("unexpected second graded event %+v", graded[1])
	}
}

// TestParseErrorPolicy verifies policy parsing.
func TestParseErrorPolicy(t *testing.T) {
	if policy, err := ParseErrorPolicy(""); err != nil || policy != FailItem {
		t.Fatalf("expected default fail_item, got %q %v", policy, err)
	}
	if policy, err := ParseErrorPolicy("FAIL_FAST"); err != nil || policy != FailFast {
		t.Fatalf("expected fail_fast, got %q %v", policy, err)
	}
	if _, err := ParseErrorPolicy("retry"); err == nil {
		t.Fatalf("expected error")
	}
}
