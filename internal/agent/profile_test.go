package agent

import (
	"context"
	"strings"
	"testing"

	"promptopt/internal/spec"
)

type usageLog struct {
	agentID string
	usage   Usage
}

func (u *usageLog) RecordUsage(agentID, _ string, usage Usage) {
	u.agentID = agentID
	u.usage = usage
}

// TestProfileSystemPrompt verifies sections render in order and empty ones are skipped.
func TestProfileSystemPrompt(t *testing.T) {
	profile := Profile{Role: "Prompt Engineer", Goal: "Improve prompts.", Tools: []string{"run_prompt"}}
	got := profile.SystemPrompt()
	want := "You are Prompt Engineer.\n\nYour goal: Improve prompts.\n\nAvailable tools: run_prompt"
	if got != want {
		t.Fatalf("unexpected system prompt %q", got)
	}
	if (Profile{}).SystemPrompt() != "" {
		t.Fatalf("expected empty prompt for empty profile")
	}
}

// TestAgentAskBuildsRequest verifies the profile and system text are combined.
func TestAgentAskBuildsRequest(t *testing.T) {
	var captured Request
	usage := &usageLog{}
	a := &Agent{
		Profile: Profile{ID: "judge", Role: "Fact Checker"},
		Provider: ProviderFunc(func(_ context.Context, req Request) (Response, error) {
			captured = req
			return Response{Text: "done", Usage: Usage{PromptTokens: 5, CompletionTokens: 1}}, nil
		}),
		Model: "m",
		Usage: usage,
	}
	text, err := a.Ask(context.Background(), "check facts", "hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if text != "done" {
		t.Fatalf("unexpected text %q", text)
	}
	if captured.System != "You are Fact Checker.\n\ncheck facts" {
		t.Fatalf("unexpected system %q", captured.System)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if usage.agentID != "judge" || usage.usage.PromptTokens != 5 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

// TestAgentAskEstimatesMissingUsage verifies token counts are filled locally.
func TestAgentAskEstimatesMissingUsage(t *testing.T) {
	usage := &usageLog{}
	a := &Agent{
		Profile: Profile{ID: "qa"},
		Provider: ProviderFunc(func(context.Context, Request) (Response, error) {
			return Response{Text: strings.Repeat("answer ", 20)}, nil
		}),
		Model: "openai/gpt-4o-mini",
		Usage: usage,
	}
	if _, err := a.Ask(context.Background(), "", strings.Repeat("question ", 20)); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if usage.usage.PromptTokens == 0 || usage.usage.CompletionTokens == 0 {
		t.Fatalf("expected estimated usage, got %+v", usage.usage)
	}
}

// TestCountTokensPositive verifies counting works with or without an encoding.
func TestCountTokensPositive(t *testing.T) {
	if CountTokens("unknown/model", "the quick brown fox jumps over the lazy dog") == 0 {
		t.Fatalf("expected a positive token count")
	}
	if ApproxTokenCount("12345678") != 2 {
		t.Fatalf("expected approx count 2")
	}
}

// TestNewRegistryBuildsAgents verifies provider reuse and API key lookup.
func TestNewRegistryBuildsAgents(t *testing.T) {
	cfg := spec.Config{
		Providers: []spec.ProviderConfig{
			{ID: "or", Type: "openrouter", APIKeyEnv: "KEY", TimeoutSeconds: 5, MaxAttempts: 2},
			{ID: "unused", Type: "gemini", APIKeyEnv: "MISSING"},
		},
		Agents: []spec.AgentConfig{
			{ID: "qa", Provider: "or", Model: "m1", Role: "Answerer"},
			{ID: "judge", Provider: "or", Model: "m2", Temperature: 0.1},
		},
	}
	lookup := func(name string) string {
		if name == "KEY" {
			return "secret"
		}
		return ""
	}
	registry, err := NewRegistry(context.Background(), cfg, RegistryOptions{LookupEnv: lookup})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	judge, err := registry.Require("judge")
	if err != nil {
		t.Fatalf("require judge: %v", err)
	}
	if judge.Model != "m2" || *judge.Temperature != 0.1 {
		t.Fatalf("unexpected judge %+v", judge)
	}
	if _, err := registry.Require("researcher"); err == nil {
		t.Fatalf("expected missing agent error")
	}
}

// TestNewRegistryMissingKey verifies a referenced provider needs its key.
func TestNewRegistryMissingKey(t *testing.T) {
	cfg := spec.Config{
		Providers: []spec.ProviderConfig{{ID: "or", Type: "openrouter", APIKeyEnv: "NOPE"}},
		Agents:    []spec.AgentConfig{{ID: "qa", Provider: "or", Model: "m"}},
	}
	_, err := NewRegistry(context.Background(), cfg, RegistryOptions{LookupEnv: func(string) string { return "" }})
	if err == nil || !strings.Contains(err.Error(), "NOPE") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
