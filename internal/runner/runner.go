package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promptopt/internal/benchmark"
	"promptopt/internal/grading"
	"promptopt/internal/logging"
)

// AnswerFunc is the QA capability: it answers one benchmark question.
type AnswerFunc func(ctx context.Context, question string) (string, error)

// ErrorPolicy decides what a judgment or answer failure does to the pass.
type ErrorPolicy string

const (
	// FailItem fails the remaining facts of the affected item and continues.
	FailItem ErrorPolicy = "fail_item"
	// FailFast aborts the whole pass on the first failure.
	FailFast ErrorPolicy = "fail_fast"
)

// ParseErrorPolicy converts a config value into an ErrorPolicy.
func ParseErrorPolicy(value string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", FailItem:
		return FailItem, nil
	case FailFast:
		return FailFast, nil
	default:
		return "", fmt.Errorf("invalid error policy %q (expected fail_item|fail_fast)", value)
	}
}

// Runner evaluates benchmark items against a QA capability.
type Runner struct {
	grader   *grading.Grader
	maxItems *int
	workers  int
	policy   ErrorPolicy
	observer Observer
	logger   logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxItems caps how many items are evaluated. Without it every item runs.
func WithMaxItems(maxItems int) Option {
	return func(r *Runner) {
		capped := maxItems
		r.maxItems = &capped
	}
}

// WithMaxItemsPtr applies an optional cap; nil means every item.
func WithMaxItemsPtr(maxItems *int) Option {
	return func(r *Runner) {
		if maxItems == nil {
			r.maxItems = nil
			return
		}
		capped := *maxItems
		r.maxItems = &capped
	}
}

// WithWorkers bounds how many items are evaluated at once.
func WithWorkers(workers int) Option {
	return func(r *Runner) {
		r.workers = workers
	}
}

// WithErrorPolicy selects fail-item or fail-fast handling.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(r *Runner) {
		r.policy = policy
	}
}

// WithObserver attaches a progress observer.
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New builds a Runner that grades with grader.
func New(grader *grading.Grader, opts ...Option) *Runner {
	r := &Runner{grader: grader, workers: 1, policy: FailItem}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	if r.policy == "" {
		r.policy = FailItem
	}
	return r
}

// Run answers and grades the selected items and aggregates an EvaluationReport.
//
// Results and failure reasons are ordered by item then fact regardless of the
// worker count. With FailFast the first item error aborts the pass.
func (r *Runner) Run(ctx context.Context, answer AnswerFunc, items []benchmark.Item) (EvaluationReport, error) {
	if answer == nil {
		return EvaluationReport{}, fmt.Errorf("%w: answer capability is nil", grading.ErrPreconditionViolation)
	}
	selected := benchmark.Limit(items, r.maxItems)
	progress := newProgressTracker(r.observer, selected)
	progress.start()
	r.logger.Debug("benchmark pass started", "items", len(selected), "workers", r.workers, "policy", string(r.policy))

	deps := itemJobDeps{
		grader:   r.grader,
		answer:   answer,
		policy:   r.policy,
		progress: progress,
		logger:   r.logger,
	}
	var (
		results []grading.QuestionResult
		err     error
	)
	if r.workers <= 1 || len(selected) <= 1 {
		results, err = runItemJobsSequential(ctx, selected, deps)
	} else {
		results, err = runItemJobsConcurrent(ctx, selected, r.workers, deps)
	}
	if err != nil {
		return EvaluationReport{}, err
	}

	report := BuildReport(results)
	progress.end(report)
	r.logger.Debug("benchmark pass finished", "score", report.OverallScore, "failures", len(report.FailureReasons))
	return report, nil
}

// itemFailure reports whether err should be handled by the error policy.
func itemFailure(err error) bool {
	return errors.Is(err, grading.ErrJudgmentUnavailable) || errors.Is(err, grading.ErrAnswerUnavailable)
}
