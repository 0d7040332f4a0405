package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const scaffoldTemplate = `# promptopt configuration
version: 1
output_dir: %q
log_level: INFO

providers:
  - id: openrouter
    type: openrouter
    api_key_env: LLM_API_KEY
    rate_limit:
      requests_per_second: 2
      burst: 4
    timeout_seconds: 60
    max_attempts: 3

agents:
  - id: qa
    role: Question Answerer
    goal: Answer questions accurately using the provided context.
    provider: openrouter
    model: openai/gpt-4o-mini
  - id: judge
    role: Fact Checker
    goal: Decide whether a specific fact is present in an answer.
    provider: openrouter
    model: openai/gpt-4o-mini
  - id: researcher
    role: Prompt Researcher
    goal: Analyze evaluation feedback and find why the prompt fails.
    provider: openrouter
    model: openai/gpt-4o-mini
  - id: prompt_engineer
    role: Prompt Engineer
    goal: Rewrite the prompt so answers cover every required fact.
    instructions: Return only the new prompt. Keep the {context} and {question} placeholders.
    provider: openrouter
    model: openai/gpt-4o-mini
    temperature: 0.7
  - id: summarizer
    role: Failure Analyst
    goal: Summarize the main patterns in failure reasons.
    provider: openrouter
    model: openai/gpt-4o-mini

benchmark:
  # file: benchmark.yml   # empty uses the built-in question set
  max_items: 2            # remove or set to null to run every item
  workers: 1
  fact_workers: 1
  on_judge_error: fail_item

loop:
  threshold: 0.8
  max_retries: 3
  artifact_path: optimized_prompt.txt
  summarize_feedback: false

rag:
  persist_dir: .promptopt/vectors
  collection: docs
  top_k: 5
  docs_dir: docs
  extensions: [".mdx", ".md"]
  embedding:
    api_key_env: OPENAI_API_KEY
    model: text-embedding-3-small

history:
  path: .promptopt/history.duckdb
`

// ScaffoldConfig renders the starter config written by init.
func ScaffoldConfig(outputDir string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, scaffoldTemplate, outputDir)
		return err
	})
}

// renderScaffoldConfig builds the scaffold YAML via the component.
func renderScaffoldConfig(outputDir string) (string, error) {
	var builder strings.Builder
	if err := ScaffoldConfig(outputDir).Render(context.Background(), &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}
