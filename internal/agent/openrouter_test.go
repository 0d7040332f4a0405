package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestNewOpenRouterProviderRequiresKey verifies construction errors.
func TestNewOpenRouterProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenRouterProvider(" ", "", nil); err == nil {
		t.Fatalf("expected api key error")
	}
	provider, err := NewOpenRouterProvider("key", "", nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if provider.BaseURL != defaultOpenRouterBaseURL {
		t.Fatalf("expected default base url, got %q", provider.BaseURL)
	}
}

// TestOpenRouterCompleteParsesStream verifies SSE deltas and usage are accumulated.
func TestOpenRouterCompleteParsesStream(t *testing.T) {
	var captured openRouterRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hello \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":7,\"completion_tokens\":2}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	provider, err := NewOpenRouterProvider("key", server.URL, server.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	temperature := 0.2
	resp, err := provider.Complete(context.Background(), Request{
		Model:          "openai/gpt-4o-mini",
		System:         "base",
		Messages:       []Message{{Role: RoleUser, Content: "hi"}},
		Temperature:    &temperature,
		ResponseSchema: &ResponseSchema{Name: "verdict", Schema: []byte(`{"type":"object"}`)},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "hello world" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 7 || resp.Usage.CompletionTokens != 2 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != RoleSystem {
		t.Fatalf("expected system then user message, got %+v", captured.Messages)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_schema" || captured.ResponseFormat.JSONSchema.Name != "verdict" {
		t.Fatalf("unexpected response format %+v", captured.ResponseFormat)
	}
	if !captured.Stream || captured.Temperature == nil || *captured.Temperature != 0.2 {
		t.Fatalf("unexpected request %+v", captured)
	}
}

// TestOpenRouterCompleteStatusError verifies non-2xx responses become StatusError.
func TestOpenRouterCompleteStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	provider, _ := NewOpenRouterProvider("key", server.URL, server.Client())
	_, err := provider.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !statusErr.Retryable() || !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("unexpected status error %v", err)
	}
}

// TestOpenRouterCompleteEmptyStream verifies a stream without content is an error.
func TestOpenRouterCompleteEmptyStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	provider, _ := NewOpenRouterProvider("key", server.URL, server.Client())
	_, err := provider.Complete(context.Background(), Request{Model: "m"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

// TestParseOpenRouterStreamError verifies in-stream errors are surfaced.
func TestParseOpenRouterStreamError(t *testing.T) {
	_, err := parseOpenRouterStream(strings.NewReader("data: {\"error\":{\"message\":\"boom\"}}\n\n"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stream error, got %v", err)
	}
	if _, err := parseOpenRouterStream(strings.NewReader("data: {not json}\n")); err == nil {
		t.Fatalf("expected parse error")
	}
}
