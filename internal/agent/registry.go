package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"promptopt/internal/logging"
	"promptopt/internal/spec"
)

// RegistryOptions supplies process dependencies to NewRegistry.
type RegistryOptions struct {
	HTTPClient HTTPDoer
	Logger     logging.Logger
	Usage      UsageRecorder
	// LookupEnv reads API keys; defaults to os.Getenv.
	LookupEnv func(string) string
	// Gemini overrides the genai models service, for tests.
	Gemini GeminiModels
}

// Registry holds the configured agents by id.
type Registry struct {
	agents map[string]*Agent
}

// NewRegistry builds every configured agent. Providers are constructed only
// when an agent references them, so unused providers need no API key.
func NewRegistry(ctx context.Context, cfg spec.Config, opts RegistryOptions) (*Registry, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.Getenv
	}
	logger := logging.OrNop(opts.Logger)

	providers := map[string]Provider{}
	registry := &Registry{agents: map[string]*Agent{}}
	for _, agentCfg := range cfg.Agents {
		provider, ok := providers[agentCfg.Provider]
		if !ok {
			providerCfg, found := cfg.Provider(agentCfg.Provider)
			if !found {
				return nil, fmt.Errorf("agent %s: unknown provider %q", agentCfg.ID, agentCfg.Provider)
			}
			built, err := buildProvider(ctx, providerCfg, lookup, opts)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", providerCfg.ID, err)
			}
			provider = Wrap(built, CallPolicy{
				RequestsPerSecond: providerCfg.RateLimit.RequestsPerSecond,
				Burst:             providerCfg.RateLimit.Burst,
				Timeout:           time.Duration(providerCfg.TimeoutSeconds) * time.Second,
				MaxAttempts:       providerCfg.MaxAttempts,
			}, logger)
			providers[agentCfg.Provider] = provider
		}
		temperature := agentCfg.Temperature
		registry.agents[agentCfg.ID] = &Agent{
			Profile: Profile{
				ID:           agentCfg.ID,
				Role:         agentCfg.Role,
				Goal:         agentCfg.Goal,
				Instructions: agentCfg.Instructions,
				Tools:        agentCfg.Tools,
			},
			Provider:    provider,
			Model:       agentCfg.Model,
			Temperature: &temperature,
			Usage:       opts.Usage,
		}
	}
	return registry, nil
}

func buildProvider(ctx context.Context, cfg spec.ProviderConfig, lookup func(string) string, opts RegistryOptions) (Provider, error) {
	apiKey := strings.TrimSpace(lookup(cfg.APIKeyEnv))
	switch cfg.Type {
	case "openrouter":
		if apiKey == "" {
			return nil, fmt.Errorf("%s is required", cfg.APIKeyEnv)
		}
		return NewOpenRouterProvider(apiKey, cfg.BaseURL, opts.HTTPClient)
	case "gemini":
		if opts.Gemini != nil {
			return NewGeminiProvider(opts.Gemini), nil
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%s is required", cfg.APIKeyEnv)
		}
		client, err := NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiProvider(client.Models), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}

// Get returns the agent with id.
func (r *Registry) Get(id string) (*Agent, bool) {
	if r == nil {
		return nil, false
	}
	agent, ok := r.agents[id]
	return agent, ok
}

// Require returns the agent with id or an error naming it.
func (r *Registry) Require(id string) (*Agent, error) {
	agent, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("agent %q is not configured", id)
	}
	return agent, nil
}
