package grading

import (
	"errors"
	"fmt"
)

var (
	// ErrJudgmentUnavailable reports that a fact could not be judged.
	ErrJudgmentUnavailable = errors.New("judgment unavailable")
	// ErrAnswerUnavailable reports that the QA capability produced no answer.
	ErrAnswerUnavailable = errors.New("answer unavailable")
	// ErrPreconditionViolation reports a programmer error such as empty or mismatched inputs.
	ErrPreconditionViolation = errors.New("precondition violation")
)

// asJudgmentUnavailable tags err with ErrJudgmentUnavailable unless it already is one.
func asJudgmentUnavailable(err error) error {
	if err == nil || errors.Is(err, ErrJudgmentUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrJudgmentUnavailable, err)
}
