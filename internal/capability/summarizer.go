package capability

import (
	"context"

	"promptopt/internal/agent"
	"promptopt/internal/summarize"
)

const summarizerSystemPrompt = "Analyze the following failure reasons and provide a concise summary of the main patterns and issues."

// Summarizer adapts an agent to summarize.Capability.
type Summarizer struct {
	agent *agent.Agent
}

func NewSummarizer(summarizerAgent *agent.Agent) *Summarizer {
	return &Summarizer{agent: summarizerAgent}
}

// Summarize asks the agent for a summary of the rendered failure list.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.agent.Ask(ctx, summarizerSystemPrompt, "Here are the failure reasons:\n"+text)
}

var _ summarize.Capability = (*Summarizer)(nil)
