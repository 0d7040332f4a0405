package agent

import (
	"context"
	"errors"
	"fmt"
)

// Chat roles accepted by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// ResponseSchema asks the provider for JSON matching Schema.
type ResponseSchema struct {
	Name   string
	Schema []byte
}

// Request is a single chat completion call.
type Request struct {
	Model          string
	System         string
	Messages       []Message
	Temperature    *float64
	ResponseSchema *ResponseSchema
}

// Usage reports token consumption when the provider returns it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is the assistant text of one completion.
type Response struct {
	Text  string
	Usage Usage
}

// Provider completes chat requests.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Response, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// ErrEmptyResponse reports a completion without text.
var ErrEmptyResponse = errors.New("provider returned no content")

// StatusError is a non-2xx HTTP response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
