package config

import (
	"strings"

	"promptopt/internal/spec"
)

// Defaults applied by Normalize.
const (
	DefaultThreshold      = 0.8
	DefaultMaxRetries     = 3
	DefaultArtifactPath   = "optimized_prompt.txt"
	DefaultTimeoutSeconds = 60
	DefaultMaxAttempts    = 3
	DefaultTopK           = 5
	DefaultCollection     = "docs"
	DefaultChunkSize      = 1500
	DefaultCacheSize      = 256
	DefaultServiceName    = "promptopt"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultEmbeddingURL   = "https://api.openai.com/v1"
)

var defaultAPIKeyEnv = map[string]string{
	"openrouter": "LLM_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// Normalize trims values and fills defaults in place.
func Normalize(cfg *spec.Config) {
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))

	for i := range cfg.Providers {
		provider := &cfg.Providers[i]
		provider.ID = strings.TrimSpace(provider.ID)
		provider.Type = strings.ToLower(strings.TrimSpace(provider.Type))
		if provider.APIKeyEnv == "" {
			provider.APIKeyEnv = defaultAPIKeyEnv[provider.Type]
		}
		if provider.TimeoutSeconds == 0 {
			provider.TimeoutSeconds = DefaultTimeoutSeconds
		}
		if provider.MaxAttempts == 0 {
			provider.MaxAttempts = DefaultMaxAttempts
		}
	}
	for i := range cfg.Agents {
		agent := &cfg.Agents[i]
		agent.ID = strings.TrimSpace(agent.ID)
		agent.Provider = strings.TrimSpace(agent.Provider)
		if agent.Provider == "" && len(cfg.Providers) == 1 {
			agent.Provider = cfg.Providers[0].ID
		}
	}

	cfg.Benchmark.OnJudgeError = strings.ToLower(strings.TrimSpace(cfg.Benchmark.OnJudgeError))
	if cfg.Benchmark.OnJudgeError == "" {
		cfg.Benchmark.OnJudgeError = "fail_item"
	}

	if cfg.Loop.Threshold == nil {
		threshold := DefaultThreshold
		cfg.Loop.Threshold = &threshold
	}
	if cfg.Loop.MaxRetries == nil {
		retries := DefaultMaxRetries
		cfg.Loop.MaxRetries = &retries
	}
	if strings.TrimSpace(cfg.Loop.ArtifactPath) == "" {
		cfg.Loop.ArtifactPath = DefaultArtifactPath
	}

	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = DefaultCollection
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = DefaultChunkSize
	}
	if len(cfg.RAG.Extensions) == 0 {
		cfg.RAG.Extensions = []string{".mdx", ".md"}
	}
	cfg.RAG.Embedding.Type = strings.ToLower(strings.TrimSpace(cfg.RAG.Embedding.Type))
	if cfg.RAG.Embedding.Type == "" {
		cfg.RAG.Embedding.Type = "openai"
	}
	if cfg.RAG.Embedding.BaseURL == "" {
		cfg.RAG.Embedding.BaseURL = DefaultEmbeddingURL
	}
	if cfg.RAG.Embedding.Model == "" {
		cfg.RAG.Embedding.Model = DefaultEmbeddingModel
		if cfg.RAG.Embedding.Type == "gemini" {
			cfg.RAG.Embedding.Model = "text-embedding-004"
		}
	}
	if cfg.RAG.Embedding.APIKeyEnv == "" {
		cfg.RAG.Embedding.APIKeyEnv = "OPENAI_API_KEY"
		if cfg.RAG.Embedding.Type == "gemini" {
			cfg.RAG.Embedding.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.RAG.Embedding.CacheSize == 0 {
		cfg.RAG.Embedding.CacheSize = DefaultCacheSize
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}
	if cfg.Tracing.Enabled && cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 1
	}
}

// ResolvePaths rewrites relative file settings against the repo root.
func ResolvePaths(cfg *spec.Config, root string) {
	cfg.OutputDir = ResolvePath(root, cfg.OutputDir)
	cfg.Benchmark.File = ResolvePath(root, cfg.Benchmark.File)
	cfg.Loop.ArtifactPath = ResolvePath(root, cfg.Loop.ArtifactPath)
	cfg.RAG.PersistDir = ResolvePath(root, cfg.RAG.PersistDir)
	cfg.RAG.DocsDir = ResolvePath(root, cfg.RAG.DocsDir)
	cfg.History.Path = ResolvePath(root, cfg.History.Path)
	cfg.Metrics.Textfile = ResolvePath(root, cfg.Metrics.Textfile)
}
