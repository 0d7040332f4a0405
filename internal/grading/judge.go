package grading

import "context"

// FactJudge decides whether one required fact is present in an answer.
//
// Implementations make a single external call and must not retry; a failure is
// returned as an error and surfaces as ErrJudgmentUnavailable.
type FactJudge interface {
	Judge(ctx context.Context, question, answer, fact string) (FactVerdict, error)
}

// JudgeFunc adapts a function to FactJudge.
type JudgeFunc func(ctx context.Context, question, answer, fact string) (FactVerdict, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, question, answer, fact string) (FactVerdict, error) {
	return f(ctx, question, answer, fact)
}
