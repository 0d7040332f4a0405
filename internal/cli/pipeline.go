package cli

import (
	"context"
	"fmt"

	"promptopt/internal/agent"
	"promptopt/internal/benchmark"
	"promptopt/internal/capability"
	"promptopt/internal/config"
	"promptopt/internal/grading"
	"promptopt/internal/logging"
	"promptopt/internal/loop"
	"promptopt/internal/rag"
	"promptopt/internal/runner"
	"promptopt/internal/spec"
	"promptopt/internal/summarize"
)

// pipeline holds the capabilities behind a benchmark pass and a loop run.
type pipeline struct {
	Items    []benchmark.Item
	Answerer loop.AnswererFactory
	Judge    grading.FactJudge
	Rewriter loop.Rewriter
	// Summarizer is nil when no summarizer agent is configured.
	Summarizer summarize.Capability
}

type pipelineDeps struct {
	Logger logging.Logger
	Usage  agent.UsageRecorder
}

// buildPipeline is a test seam for capability construction.
var buildPipeline = defaultBuildPipeline

func defaultBuildPipeline(ctx context.Context, cfg spec.Config, deps pipelineDeps) (*pipeline, error) {
	set, err := benchmark.Load(cfg.Benchmark.File)
	if err != nil {
		return nil, err
	}
	registry, err := agent.NewRegistry(ctx, cfg, agent.RegistryOptions{Logger: deps.Logger, Usage: deps.Usage})
	if err != nil {
		return nil, err
	}
	qaAgent, err := registry.Require(config.AgentQA)
	if err != nil {
		return nil, err
	}
	judgeAgent, err := registry.Require(config.AgentJudge)
	if err != nil {
		return nil, err
	}
	researcher, err := registry.Require(config.AgentResearcher)
	if err != nil {
		return nil, err
	}
	engineer, err := registry.Require(config.AgentPromptEngineer)
	if err != nil {
		return nil, err
	}

	qaOpts := []rag.QAOption{rag.WithLogger(deps.Logger)}
	if cfg.RAG.Rephrase {
		rephraser, err := registry.Require(config.AgentRephraser)
		if err != nil {
			return nil, err
		}
		qaOpts = append(qaOpts, rag.WithRephraser(rephraser))
	}
	if cfg.RAG.PersistDir != "" {
		store, err := openVectorStore(ctx, cfg.RAG)
		if err != nil {
			return nil, err
		}
		qaOpts = append(qaOpts, rag.WithRetriever(store, cfg.RAG.TopK))
	} else {
		deps.Logger.Warn("rag.persist_dir is not set; answering without retrieved context")
	}
	qa := rag.NewQA(qaAgent, qaOpts...)

	p := &pipeline{
		Items:    set.Items,
		Answerer: qa.Answerer,
		Judge:    capability.NewJudge(judgeAgent),
		Rewriter: capability.NewRewriter(researcher, engineer),
	}
	if summarizerAgent, ok := registry.Get(config.AgentSummarizer); ok {
		p.Summarizer = capability.NewSummarizer(summarizerAgent)
	}
	return p, nil
}

// openVectorStore opens the configured chromem collection behind a cached embedder.
func openVectorStore(ctx context.Context, cfg spec.RAGConfig) (*rag.Store, error) {
	embedder, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return rag.OpenStore(cfg.PersistDir, cfg.Collection, embedder)
}

func newEmbedder(ctx context.Context, cfg spec.EmbeddingConfig) (rag.Embedder, error) {
	key := config.APIKey(cfg.APIKeyEnv)
	var inner rag.Embedder
	switch cfg.Type {
	case "gemini":
		client, err := agent.NewGeminiClient(ctx, key)
		if err != nil {
			return nil, err
		}
		inner = rag.NewGeminiEmbedder(client.Models, cfg.Model)
	default:
		openai, err := rag.NewOpenAIEmbedder(cfg.BaseURL, cfg.Model, key)
		if err != nil {
			return nil, err
		}
		inner = openai
	}
	cached, err := rag.NewCachedEmbedder(inner, cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return cached, nil
}

// newRunner builds a BenchmarkRunner from the benchmark settings.
func newRunner(cfg spec.Config, judge grading.FactJudge, observer runner.Observer, logger logging.Logger) (*runner.Runner, error) {
	policy, err := runner.ParseErrorPolicy(cfg.Benchmark.OnJudgeError)
	if err != nil {
		return nil, err
	}
	grader := grading.NewGrader(judge, grading.WithFactWorkers(cfg.Benchmark.FactWorkers))
	return runner.New(grader,
		runner.WithMaxItemsPtr(cfg.Benchmark.MaxItems),
		runner.WithWorkers(cfg.Benchmark.Workers),
		runner.WithErrorPolicy(policy),
		runner.WithObserver(observer),
		runner.WithLogger(logger),
	), nil
}

// loopPolicy reads the normalized termination constants.
func loopPolicy(cfg spec.Config) loop.Policy {
	policy := loop.DefaultPolicy()
	if cfg.Loop.Threshold != nil {
		policy.Threshold = *cfg.Loop.Threshold
	}
	if cfg.Loop.MaxRetries != nil {
		policy.MaxRetries = *cfg.Loop.MaxRetries
	}
	return policy
}
