package grading

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Grader turns an answer and its required facts into a QuestionResult.
type Grader struct {
	judge   FactJudge
	workers int
}

// GraderOption configures a Grader.
type GraderOption func(*Grader)

// WithFactWorkers bounds how many facts are judged at once. Values below 2 judge sequentially.
func WithFactWorkers(workers int) GraderOption {
	return func(g *Grader) {
		g.workers = workers
	}
}

// NewGrader builds a Grader around judge.
func NewGrader(judge FactJudge, opts ...GraderOption) *Grader {
	g := &Grader{judge: judge, workers: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grade judges every fact and returns one verdict per fact in input order.
//
// When a judgment fails, the returned result is still complete: facts without a
// verdict are failed with the error attached, and the error (wrapping
// ErrJudgmentUnavailable) is returned alongside it.
func (g *Grader) Grade(ctx context.Context, question, response string, facts []string) (QuestionResult, error) {
	if g == nil || g.judge == nil {
		return QuestionResult{}, fmt.Errorf("%w: grader has no judge", ErrPreconditionViolation)
	}
	verdicts := make([]FactVerdict, len(facts))
	judged := make([]bool, len(facts))

	var err error
	if g.workers <= 1 || len(facts) <= 1 {
		err = g.judgeSequential(ctx, question, response, facts, verdicts, judged)
	} else {
		err = g.judgeConcurrent(ctx, question, response, facts, verdicts, judged)
	}
	if err != nil {
		err = asJudgmentUnavailable(err)
		for i := range facts {
			if !judged[i] {
				verdicts[i] = erroredVerdict(facts[i], err)
			}
		}
	}

	result, buildErr := NewQuestionResult(question, response, facts, verdicts)
	if buildErr != nil {
		return QuestionResult{}, buildErr
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

func (g *Grader) judgeSequential(ctx context.Context, question, response string, facts []string, verdicts []FactVerdict, judged []bool) error {
	for i, fact := range facts {
		verdict, err := g.judge.Judge(ctx, question, response, fact)
		if err != nil {
			return fmt.Errorf("judge fact %d: %w", i+1, err)
		}
		verdict.Fact = fact
		verdicts[i] = verdict
		judged[i] = true
	}
	return nil
}

// judgeConcurrent fans out over a bounded pool; each worker writes only its own slot.
func (g *Grader) judgeConcurrent(ctx context.Context, question, response string, facts []string, verdicts []FactVerdict, judged []bool) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.workers)
	for i, fact := range facts {
		group.Go(func() error {
			verdict, err := g.judge.Judge(groupCtx, question, response, fact)
			if err != nil {
				return fmt.Errorf("judge fact %d: %w", i+1, err)
			}
			verdict.Fact = fact
			verdicts[i] = verdict
			judged[i] = true
			return nil
		})
	}
	return group.Wait()
}

// NewQuestionResult assembles a result and checks the one-verdict-per-fact invariant.
func NewQuestionResult(question, response string, facts []string, verdicts []FactVerdict) (QuestionResult, error) {
	if len(verdicts) != len(facts) {
		return QuestionResult{}, fmt.Errorf("%w: %d verdicts for %d facts", ErrPreconditionViolation, len(verdicts), len(facts))
	}
	if verdicts == nil {
		verdicts = []FactVerdict{}
	}
	return QuestionResult{
		Question:     question,
		Response:     response,
		Score:        Score(verdicts),
		FactVerdicts: verdicts,
	}, nil
}

// FailAll builds a result in which every fact failed because of cause.
func FailAll(question, response string, facts []string, cause error) QuestionResult {
	verdicts := make([]FactVerdict, len(facts))
	for i, fact := range facts {
		verdicts[i] = erroredVerdict(fact, cause)
	}
	result, _ := NewQuestionResult(question, response, facts, verdicts)
	if cause != nil {
		result.Error = cause.Error()
	}
	return result
}

func erroredVerdict(fact string, cause error) FactVerdict {
	verdict := FactVerdict{Fact: fact, Passed: false, Reason: "not judged"}
	if cause != nil {
		verdict.Reason = "not judged: " + cause.Error()
		verdict.Error = cause.Error()
	}
	return verdict
}
