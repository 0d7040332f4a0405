package loop

import (
	"context"
	"fmt"
	"strings"

	"promptopt/internal/logging"
	"promptopt/internal/runner"
	"promptopt/internal/summarize"
)

// FeedbackFunc turns a report into the feedback text handed to the rewriter.
type FeedbackFunc func(ctx context.Context, report runner.EvaluationReport) (string, error)

// FormatFeedback lists every failure reason under the score. It is empty when
// nothing failed.
func FormatFeedback(report runner.EvaluationReport) string {
	if len(report.FailureReasons) == 0 {
		return ""
	}
	lines := make([]string, 0, len(report.FailureReasons))
	for _, failure := range report.FailureReasons {
		lines = append(lines, "- "+failure.Reason)
	}
	return fmt.Sprintf("Score: %.2f\n\nFailure Reasons:\n%s", report.OverallScore, strings.Join(lines, "\n"))
}

// RawFeedback is the default FeedbackFunc.
func RawFeedback(_ context.Context, report runner.EvaluationReport) (string, error) {
	return FormatFeedback(report), nil
}

// SummarizedFeedback condenses failures with s. It is only called when failures
// exist; a summarizer error falls back to the raw listing.
func SummarizedFeedback(s *summarize.Summarizer, logger logging.Logger) FeedbackFunc {
	logger = logging.OrNop(logger)
	return func(ctx context.Context, report runner.EvaluationReport) (string, error) {
		if len(report.FailureReasons) == 0 {
			return "", nil
		}
		summary, err := s.Summarize(ctx, report.FailureReasons)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Warn("failure summary unavailable, using raw reasons", "error", err)
			return FormatFeedback(report), nil
		}
		return fmt.Sprintf("Score: %.2f\n\nFailure Summary:\n%s", report.OverallScore, summary), nil
	}
}
