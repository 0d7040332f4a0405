package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"promptopt/internal/benchmark"
	"promptopt/internal/grading"
	"promptopt/internal/logging"
)

// itemJobDeps bundles dependencies for evaluating a single item.
type itemJobDeps struct {
	grader   *grading.Grader
	answer   AnswerFunc
	policy   ErrorPolicy
	progress *progressTracker
	logger   logging.Logger
}

// runItemJobsSequential evaluates items one at a time.
func runItemJobsSequential(ctx context.Context, items []benchmark.Item, deps itemJobDeps) ([]grading.QuestionResult, error) {
	results := make([]grading.QuestionResult, 0, len(items))
	for index, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := executeItemJob(ctx, deps, index, item)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// runItemJobsConcurrent evaluates items on a bounded pool; each job writes its own slot.
func runItemJobsConcurrent(ctx context.Context, items []benchmark.Item, workers int, deps itemJobDeps) ([]grading.QuestionResult, error) {
	results := make([]grading.QuestionResult, len(items))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for index, item := range items {
		group.Go(func() error {
			result, err := executeItemJob(groupCtx, deps, index, item)
			if err != nil {
				return err
			}
			results[index] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// executeItemJob answers and grades one item, applying the error policy.
func executeItemJob(ctx context.Context, deps itemJobDeps, index int, item benchmark.Item) (grading.QuestionResult, error) {
	deps.progress.emit(index, ItemAnswering, nil)
	response, err := deps.answer(ctx, item.Question)
	if err != nil {
		if ctx.Err() != nil {
			return grading.QuestionResult{}, ctx.Err()
		}
		cause := fmt.Errorf("%w: %w", grading.ErrAnswerUnavailable, err)
		return handleItemError(deps, index, item, grading.FailAll(item.Question, "", item.RequiredFacts, cause), cause)
	}

	deps.progress.emit(index, ItemGrading, nil)
	result, err := deps.grader.Grade(ctx, item.Question, response, item.RequiredFacts)
	if err != nil {
		if ctx.Err() != nil {
			return grading.QuestionResult{}, ctx.Err()
		}
		if !itemFailure(err) {
			return grading.QuestionResult{}, fmt.Errorf("item %d: %w", index+1, err)
		}
		return handleItemError(deps, index, item, result, err)
	}
	deps.progress.emit(index, ItemGraded, &result)
	return result, nil
}

func handleItemError(deps itemJobDeps, index int, item benchmark.Item, result grading.QuestionResult, err error) (grading.QuestionResult, error) {
	if deps.policy == FailFast {
		return grading.QuestionResult{}, fmt.Errorf("item %d %q: %w", index+1, item.Question, err)
	}
	deps.logger.Warn("item failed", "index", index+1, "question", item.Question, "error", err)
	deps.progress.emit(index, ItemFailed, &result)
	return result, nil
}
