package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promptopt/internal/agent"
	"promptopt/internal/loop"
)

const researchPromptTemplate = `A prompt template is used to answer benchmark questions from retrieved documentation context.
It scored %.2f (fraction of required facts present in the answers).

Current prompt:
<<<
%s
>>>

Evaluation feedback:
%s

Analyze why answers produced with this prompt miss required facts. List concrete, actionable improvements to the prompt.`

const engineerPromptTemplate = `Rewrite the prompt template below so that answers cover every required fact.

Current prompt (score %.2f):
<<<
%s
>>>

Evaluation feedback:
%s

Research notes:
%s

Keep the {context} and {question} placeholders. Return only the new prompt text, with no commentary.`

// Rewriter proposes a new prompt in two stages: a researcher analyzes the
// feedback, then a prompt engineer writes the replacement.
type Rewriter struct {
	researcher *agent.Agent
	engineer   *agent.Agent
}

// NewRewriter wires the two rewrite agents.
func NewRewriter(researcher, engineer *agent.Agent) *Rewriter {
	return &Rewriter{researcher: researcher, engineer: engineer}
}

// Rewrite returns the engineer's prompt. Any stage failure or empty output is
// reported as loop.ErrRewriteUnavailable.
func (r *Rewriter) Rewrite(ctx context.Context, prompt, feedback string, score float64) (string, error) {
	if strings.TrimSpace(feedback) == "" {
		feedback = "(no failure reasons)"
	}
	notes, err := r.researcher.Ask(ctx, "", fmt.Sprintf(researchPromptTemplate, score, prompt, feedback))
	if err != nil {
		return "", fmt.Errorf("%w: research: %v", loop.ErrRewriteUnavailable, err)
	}
	rewritten, err := r.engineer.Ask(ctx, "", fmt.Sprintf(engineerPromptTemplate, score, prompt, feedback, strings.TrimSpace(notes)))
	if err != nil {
		return "", fmt.Errorf("%w: engineer: %v", loop.ErrRewriteUnavailable, err)
	}
	if strings.TrimSpace(rewritten) == "" {
		return "", fmt.Errorf("%w: %v", loop.ErrRewriteUnavailable, errors.New("engineer returned an empty prompt"))
	}
	return rewritten, nil
}

var _ loop.Rewriter = (*Rewriter)(nil)
