package loop

import (
	"context"

	"promptopt/internal/benchmark"
	"promptopt/internal/runner"
)

// Evaluator scores a prompt with one benchmark pass.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt string) (runner.EvaluationReport, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, prompt string) (runner.EvaluationReport, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, prompt string) (runner.EvaluationReport, error) {
	return f(ctx, prompt)
}

// Rewriter proposes a new prompt from the current prompt, feedback and score.
type Rewriter interface {
	Rewrite(ctx context.Context, prompt, feedback string, score float64) (string, error)
}

// RewriterFunc adapts a function to Rewriter.
type RewriterFunc func(ctx context.Context, prompt, feedback string, score float64) (string, error)

func (f RewriterFunc) Rewrite(ctx context.Context, prompt, feedback string, score float64) (string, error) {
	return f(ctx, prompt, feedback, score)
}

// AnswererFactory binds a prompt template to a QA capability.
type AnswererFactory func(prompt string) runner.AnswerFunc

// BenchmarkEvaluator runs a Runner over fixed items with a prompt-bound QA capability.
type BenchmarkEvaluator struct {
	Runner   *runner.Runner
	Items    []benchmark.Item
	Answerer AnswererFactory
}

// Evaluate runs one benchmark pass for prompt.
func (e BenchmarkEvaluator) Evaluate(ctx context.Context, prompt string) (runner.EvaluationReport, error) {
	return e.Runner.Run(ctx, e.Answerer(prompt), e.Items)
}
