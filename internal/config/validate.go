package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"promptopt/internal/benchmark"
	"promptopt/internal/spec"
)

// Agent ids the run command depends on.
const (
	AgentQA             = "qa"
	AgentJudge          = "judge"
	AgentResearcher     = "researcher"
	AgentPromptEngineer = "prompt_engineer"
	AgentSummarizer     = "summarizer"
	AgentRephraser      = "rephraser"
)

// RequiredAgents must always be configured.
var RequiredAgents = []string{AgentQA, AgentJudge, AgentResearcher, AgentPromptEngineer}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a config for correctness and referenced files.
func Validate(cfg *spec.Config, baseDir string) error {
	collector := &issueCollector{}
	if baseDir == "" {
		baseDir = "."
	}

	validateStruct(cfg, collector.add)
	providerIDs := validateProviders(cfg, collector.add)
	validateAgents(cfg, providerIDs, collector.add)
	validateFeatures(cfg, baseDir, collector.add)

	return collector.result()
}

func validateStruct(cfg *spec.Config, add issueAdder) {
	err := structValidator.Struct(cfg)
	if err == nil {
		return
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		add("config", err.Error())
		return
	}
	for _, fieldErr := range fieldErrors {
		add(fieldPath(fieldErr.Namespace()), ruleMessage(fieldErr))
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func ruleMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("needs at least %s entries", fieldErr.Param())
	case "eq":
		return fmt.Sprintf("unsupported value %v", fieldErr.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fieldErr.Param(), " ", ", "))
	case "gte":
		return "must be >= " + fieldErr.Param()
	case "lte":
		return "must be <= " + fieldErr.Param()
	case "url":
		return "must be a URL"
	default:
		return fmt.Sprintf("failed %q check", fieldErr.Tag())
	}
}

func validateProviders(cfg *spec.Config, add issueAdder) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, provider := range cfg.Providers {
		if provider.ID == "" {
			continue
		}
		if _, exists := ids[provider.ID]; exists {
			add("providers.id", fmt.Sprintf("duplicate id %q", provider.ID))
			continue
		}
		ids[provider.ID] = struct{}{}
	}
	return ids
}

func validateAgents(cfg *spec.Config, providerIDs map[string]struct{}, add issueAdder) {
	agentIDs := map[string]struct{}{}
	for i, agent := range cfg.Agents {
		if agent.ID != "" {
			if _, exists := agentIDs[agent.ID]; exists {
				add("agents.id", fmt.Sprintf("duplicate id %q", agent.ID))
			}
			agentIDs[agent.ID] = struct{}{}
		}
		if agent.Provider == "" {
			continue
		}
		if _, ok := providerIDs[agent.Provider]; !ok {
			add(fmt.Sprintf("agents[%d].provider", i), fmt.Sprintf("unknown provider %q", agent.Provider))
		}
	}
	for _, id := range RequiredAgents {
		if _, ok := agentIDs[id]; !ok {
			add("agents", fmt.Sprintf("missing required agent %q", id))
		}
	}
	if cfg.Loop.SummarizeFeedback {
		if _, ok := agentIDs[AgentSummarizer]; !ok {
			add("loop.summarize_feedback", fmt.Sprintf("requires agent %q", AgentSummarizer))
		}
	}
	if cfg.RAG.Rephrase {
		if _, ok := agentIDs[AgentRephraser]; !ok {
			add("rag.rephrase", fmt.Sprintf("requires agent %q", AgentRephraser))
		}
	}
}

func validateFeatures(cfg *spec.Config, baseDir string, add issueAdder) {
	if file := strings.TrimSpace(cfg.Benchmark.File); file != "" {
		path := ResolvePath(baseDir, file)
		if info, err := os.Stat(path); err != nil {
			add("benchmark.file", fmt.Sprintf("cannot read %q: %v", file, err))
		} else if info.IsDir() {
			add("benchmark.file", fmt.Sprintf("%q is a directory", file))
		} else if _, err := benchmark.Load(path); err != nil {
			addBenchmark(add, "benchmark.file", err)
		}
	}
	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		add("tracing.endpoint", "is required when tracing is enabled")
	}
	if cfg.RAG.PersistDir == "" && cfg.RAG.DocsDir != "" {
		add("rag.persist_dir", "is required when rag.docs_dir is set")
	}
}
