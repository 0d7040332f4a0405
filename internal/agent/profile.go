package agent

import (
	"context"
	"fmt"
	"strings"
)

// Profile is the persona an agent plays.
type Profile struct {
	ID           string
	Role         string
	Goal         string
	Instructions string
	Tools        []string
}

// SystemPrompt renders the profile as a system message. Empty sections are omitted.
func (p Profile) SystemPrompt() string {
	var sections []string
	if p.Role != "" {
		sections = append(sections, "You are "+p.Role+".")
	}
	if p.Goal != "" {
		sections = append(sections, "Your goal: "+p.Goal)
	}
	if p.Instructions != "" {
		sections = append(sections, p.Instructions)
	}
	if len(p.Tools) > 0 {
		sections = append(sections, "Available tools: "+strings.Join(p.Tools, ", "))
	}
	return strings.Join(sections, "\n\n")
}

// UsageRecorder receives token counts per agent call.
type UsageRecorder interface {
	RecordUsage(agentID, model string, usage Usage)
}

// Agent is a profile bound to a provider and model.
type Agent struct {
	Profile     Profile
	Provider    Provider
	Model       string
	Temperature *float64
	Usage       UsageRecorder
}

// Ask sends one user message. A non-empty system text is appended to the profile prompt.
func (a *Agent) Ask(ctx context.Context, system, user string) (string, error) {
	return a.complete(ctx, system, user, nil)
}

// AskJSON is Ask with a JSON response schema.
func (a *Agent) AskJSON(ctx context.Context, system, user string, schema *ResponseSchema) (string, error) {
	return a.complete(ctx, system, user, schema)
}

func (a *Agent) complete(ctx context.Context, system, user string, schema *ResponseSchema) (string, error) {
	if a == nil || a.Provider == nil {
		return "", fmt.Errorf("agent has no provider")
	}
	req := Request{
		Model:          a.Model,
		System:         a.systemPrompt(system),
		Messages:       []Message{{Role: RoleUser, Content: user}},
		Temperature:    a.Temperature,
		ResponseSchema: schema,
	}
	resp, err := a.Provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", a.Profile.ID, err)
	}
	if a.Usage != nil {
		usage := resp.Usage
		if usage.PromptTokens == 0 {
			usage.PromptTokens = CountTokens(a.Model, req.System+"\n"+user)
		}
		if usage.CompletionTokens == 0 {
			usage.CompletionTokens = CountTokens(a.Model, resp.Text)
		}
		a.Usage.RecordUsage(a.Profile.ID, a.Model, usage)
	}
	return resp.Text, nil
}

func (a *Agent) systemPrompt(system string) string {
	profile := a.Profile.SystemPrompt()
	switch {
	case system == "":
		return profile
	case profile == "":
		return system
	default:
		return profile + "\n\n" + system
	}
}
