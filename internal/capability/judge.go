package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"

	"promptopt/internal/agent"
	"promptopt/internal/grading"
)

const judgeSystemPrompt = "Evaluate if the specific fact is present in the answer."

const judgePromptTemplate = `You are an evaluator checking if a specific fact is present in an answer.

Question: %s

Fact to check: %s

Answer to evaluate:
%s

Determine if this specific fact is present in the answer. Consider both explicit mentions and implicit coverage.
Provide a clear reason for your decision.

Respond with a JSON object with the keys "fact", "passed" and "reason".`

// EmptyAnswerReason is the verdict reason used when there is nothing to judge.
const EmptyAnswerReason = "answer is empty"

// verdictPayload is the structured output requested from the judge model.
type verdictPayload struct {
	Fact   string `json:"fact" jsonschema:"description=The fact that was checked"`
	Passed *bool  `json:"passed" validate:"required" jsonschema:"description=Whether the fact is present in the answer"`
	Reason string `json:"reason" validate:"required" jsonschema:"description=Why the fact is or is not present"`
}

var (
	payloadValidator = validator.New()
	verdictSchema    = mustSchema("fact_verdict", &verdictPayload{})
)

// mustSchema reflects a JSON schema for v; reflection of a static type cannot fail at runtime.
func mustSchema(name string, v any) *agent.ResponseSchema {
	reflector := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	data, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("reflect %s schema: %v", name, err))
	}
	return &agent.ResponseSchema{Name: name, Schema: data}
}

// Judge decides fact presence with an LLM agent.
type Judge struct {
	agent *agent.Agent
}

// NewJudge wraps a judge agent.
func NewJudge(judgeAgent *agent.Agent) *Judge {
	return &Judge{agent: judgeAgent}
}

// Judge returns a verdict for one fact. An empty answer fails without a call.
func (j *Judge) Judge(ctx context.Context, question, answer, fact string) (grading.FactVerdict, error) {
	if strings.TrimSpace(answer) == "" {
		return grading.FactVerdict{Fact: fact, Passed: false, Reason: EmptyAnswerReason}, nil
	}
	prompt := fmt.Sprintf(judgePromptTemplate, question, fact, answer)
	raw, err := j.agent.AskJSON(ctx, judgeSystemPrompt, prompt, verdictSchema)
	if err != nil {
		return grading.FactVerdict{}, fmt.Errorf("%w: %v", grading.ErrJudgmentUnavailable, err)
	}
	payload, err := parseVerdict(raw)
	if err != nil {
		return grading.FactVerdict{}, fmt.Errorf("%w: %v", grading.ErrJudgmentUnavailable, err)
	}
	return grading.FactVerdict{Fact: fact, Passed: *payload.Passed, Reason: strings.TrimSpace(payload.Reason)}, nil
}

// parseVerdict extracts, repairs and validates the judge's JSON object.
func parseVerdict(raw string) (verdictPayload, error) {
	text := extractObject(raw)
	if text == "" {
		return verdictPayload{}, errors.New("judge output has no JSON object")
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return verdictPayload{}, fmt.Errorf("repair judge output: %w", err)
	}
	var payload verdictPayload
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return verdictPayload{}, fmt.Errorf("decode judge output: %w", err)
	}
	if err := payloadValidator.Struct(payload); err != nil {
		return verdictPayload{}, fmt.Errorf("invalid judge output: %w", err)
	}
	return payload, nil
}

// extractObject trims prose and code fences around the outermost JSON object.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(raw, "}")
	if end < start {
		return raw[start:]
	}
	return raw[start : end+1]
}

var _ grading.FactJudge = (*Judge)(nil)
