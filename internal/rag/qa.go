package rag

import (
	"context"
	"fmt"
	"strings"

	"promptopt/internal/agent"
	"promptopt/internal/logging"
	"promptopt/internal/runner"
)

const rephrasePromptTemplate = "Rewrite the following question as a concise 2 word query for a vector database: %s"

// RenderPrompt substitutes {context} and {question} in one pass, so inserted
// text is never re-expanded. Templates without placeholders are returned unchanged.
func RenderPrompt(template, docs, question string) string {
	return strings.NewReplacer("{context}", docs, "{question}", question).Replace(template)
}

// JoinContext concatenates retrieved documents with blank lines.
func JoinContext(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		parts = append(parts, result.Document.Content)
	}
	return strings.Join(parts, "\n\n")
}

// QA answers benchmark questions from retrieved context.
type QA struct {
	answerer  *agent.Agent
	rephraser *agent.Agent
	retriever Retriever
	topK      int
	logger    logging.Logger
}

// QAOption configures QA.
type QAOption func(*QA)

// WithRephraser turns questions into short vector queries before retrieval.
func WithRephraser(rephraser *agent.Agent) QAOption {
	return func(q *QA) {
		q.rephraser = rephraser
	}
}

// WithRetriever sets the document source; without one the context is empty.
func WithRetriever(retriever Retriever, topK int) QAOption {
	return func(q *QA) {
		q.retriever = retriever
		q.topK = topK
	}
}

func WithLogger(logger logging.Logger) QAOption {
	return func(q *QA) {
		q.logger = logging.OrNop(logger)
	}
}

// NewQA builds the QA capability around the answering agent.
func NewQA(answerer *agent.Agent, opts ...QAOption) *QA {
	qa := &QA{answerer: answerer, topK: 5, logger: logging.Nop()}
	for _, opt := range opts {
		opt(qa)
	}
	return qa
}

// Answerer binds prompt to a runner.AnswerFunc.
func (q *QA) Answerer(prompt string) runner.AnswerFunc {
	return func(ctx context.Context, question string) (string, error) {
		return q.Answer(ctx, prompt, question)
	}
}

// Answer retrieves context for question, renders prompt, and asks the agent.
func (q *QA) Answer(ctx context.Context, prompt, question string) (string, error) {
	docs, err := q.retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	answer, err := q.answerer.Ask(ctx, "", RenderPrompt(prompt, docs, question))
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return answer, nil
}

func (q *QA) retrieve(ctx context.Context, question string) (string, error) {
	if q.retriever == nil {
		return "", nil
	}
	query := question
	if q.rephraser != nil {
		rephrased, err := q.rephraser.Ask(ctx, "", fmt.Sprintf(rephrasePromptTemplate, question))
		if err != nil {
			return "", fmt.Errorf("rephrase question: %w", err)
		}
		if trimmed := strings.TrimSpace(rephrased); trimmed != "" {
			query = trimmed
		}
	}
	results, err := q.retriever.Query(ctx, query, q.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	q.logger.Debug("retrieved context", "query", query, "documents", len(results))
	return JoinContext(results), nil
}
