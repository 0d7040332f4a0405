package summarize

import (
	"context"
	"fmt"
	"strings"

	"promptopt/internal/grading"
	"promptopt/internal/runner"
)

// Capability condenses free-form text into a short summary.
type Capability interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, text string) (string, error)

func (f CapabilityFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Summarizer turns raw failure reasons into a human-readable diagnosis.
type Summarizer struct {
	capability Capability
}

// New builds a Summarizer around capability.
func New(capability Capability) *Summarizer {
	return &Summarizer{capability: capability}
}

// Summarize condenses failures. Callers must not pass an empty slice; doing so
// returns grading.ErrPreconditionViolation.
func (s *Summarizer) Summarize(ctx context.Context, failures []runner.FailureReason) (string, error) {
	if len(failures) == 0 {
		return "", fmt.Errorf("%w: summarize called without failure reasons", grading.ErrPreconditionViolation)
	}
	if s == nil || s.capability == nil {
		return "", fmt.Errorf("%w: summarizer has no capability", grading.ErrPreconditionViolation)
	}
	summary, err := s.capability.Summarize(ctx, FormatFailures(failures))
	if err != nil {
		return "", fmt.Errorf("summarize failures: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// FormatFailures renders failures one per line, in order.
func FormatFailures(failures []runner.FailureReason) string {
	var b strings.Builder
	for i, failure := range failures {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- question: %s | fact: %s | reason: %s", failure.Question, failure.Fact, failure.Reason)
	}
	return b.String()
}
