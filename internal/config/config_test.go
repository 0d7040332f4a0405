package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptopt/internal/spec"
)

// validConfig returns a minimal config used by validation tests.
func validConfig() spec.Config {
	agents := []spec.AgentConfig{}
	for _, id := range RequiredAgents {
		agents = append(agents, spec.AgentConfig{ID: id, Provider: "openrouter", Model: "openai/gpt-4o-mini"})
	}
	cfg := spec.Config{
		Version:   1,
		OutputDir: "./out",
		Providers: []spec.ProviderConfig{{ID: "openrouter", Type: "openrouter"}},
		Agents:    agents,
	}
	Normalize(&cfg)
	return cfg
}

func requireIssue(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error for %s", field)
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !validationErr.HasField(field) {
		t.Fatalf("expected issue for %s, got %q", field, err.Error())
	}
}

// TestValidateAcceptsMinimalConfig verifies the baseline config is valid.
func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := validConfig()
	if err := Validate(&cfg, t.TempDir()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

// TestNormalizeFillsDefaults verifies loop, provider, and rag defaults.
func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := spec.Config{
		Providers: []spec.ProviderConfig{{ID: "g", Type: " Gemini "}},
		Agents:    []spec.AgentConfig{{ID: "qa"}},
		LogLevel:  "debug",
	}
	Normalize(&cfg)

	if *cfg.Loop.Threshold != DefaultThreshold || *cfg.Loop.MaxRetries != DefaultMaxRetries {
		t.Fatalf("unexpected loop defaults %v %v", *cfg.Loop.Threshold, *cfg.Loop.MaxRetries)
	}
	if cfg.Loop.ArtifactPath != DefaultArtifactPath {
		t.Fatalf("unexpected artifact path %q", cfg.Loop.ArtifactPath)
	}
	if cfg.Providers[0].Type != "gemini" || cfg.Providers[0].APIKeyEnv != "GEMINI_API_KEY" {
		t.Fatalf("unexpected provider %+v", cfg.Providers[0])
	}
	if cfg.Providers[0].TimeoutSeconds != DefaultTimeoutSeconds {
		t.Fatalf("expected default timeout, got %d", cfg.Providers[0].TimeoutSeconds)
	}
	if cfg.Agents[0].Provider != "g" {
		t.Fatalf("expected sole provider to be inherited, got %q", cfg.Agents[0].Provider)
	}
	if cfg.RAG.TopK != DefaultTopK || cfg.Benchmark.OnJudgeError != "fail_item" {
		t.Fatalf("unexpected defaults top_k=%d policy=%q", cfg.RAG.TopK, cfg.Benchmark.OnJudgeError)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Fatalf("expected upper-cased log level, got %q", cfg.LogLevel)
	}
	if cfg.Benchmark.MaxItems != nil {
		t.Fatalf("expected max_items to stay unset")
	}
}

// TestValidateMissingRequiredAgent verifies each pipeline agent must exist.
func TestValidateMissingRequiredAgent(t *testing.T) {
	cfg := validConfig()
	cfg.Agents = cfg.Agents[:len(cfg.Agents)-1]
	err := Validate(&cfg, ".")
	requireIssue(t, err, "agents")
	if !strings.Contains(err.Error(), AgentPromptEngineer) {
		t.Fatalf("expected missing agent name in %q", err.Error())
	}
}

// TestValidateDetectsDuplicateAgentIDs verifies duplicate ids are rejected.
func TestValidateDetectsDuplicateAgentIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Agents = append(cfg.Agents, cfg.Agents[0])
	requireIssue(t, Validate(&cfg, "."), "agents.id")
}

// TestValidateUnknownProvider verifies agents must reference a provider.
func TestValidateUnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Agents[1].Provider = "nope"
	requireIssue(t, Validate(&cfg, "."), "agents[1].provider")
}

// TestValidateStructRules verifies tag-based rules are reported with yaml field paths.
func TestValidateStructRules(t *testing.T) {
	cfg := validConfig()
	cfg.Providers[0].Type = "smtp"
	threshold := 1.5
	cfg.Loop.Threshold = &threshold
	cfg.Benchmark.OnJudgeError = "retry"

	err := Validate(&cfg, ".")
	requireIssue(t, err, "providers[0].type")
	requireIssue(t, err, "loop.threshold")
	requireIssue(t, err, "benchmark.on_judge_error")
}

// TestValidateMissingOutputDir verifies output_dir is required.
func TestValidateMissingOutputDir(t *testing.T) {
	cfg := validConfig()
	cfg.OutputDir = ""
	requireIssue(t, Validate(&cfg, "."), "output_dir")
}

// TestValidateOptionalAgents verifies feature flags require their agents.
func TestValidateOptionalAgents(t *testing.T) {
	cfg := validConfig()
	cfg.Loop.SummarizeFeedback = true
	cfg.RAG.Rephrase = true
	err := Validate(&cfg, ".")
	requireIssue(t, err, "loop.summarize_feedback")
	requireIssue(t, err, "rag.rephrase")
}

// TestValidateBenchmarkFile verifies a configured benchmark file must exist.
func TestValidateBenchmarkFile(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Benchmark.File = "missing.yml"
	requireIssue(t, Validate(&cfg, dir), "benchmark.file")

	bench := "version: 1\nitems:\n  - question: What is traced?\n    required_facts: [LLM calls]\n"
	if err := os.WriteFile(filepath.Join(dir, "bench.yml"), []byte(bench), 0o644); err != nil {
		t.Fatalf("write benchmark: %v", err)
	}
	cfg.Benchmark.File = "bench.yml"
	if err := Validate(&cfg, dir); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

// TestValidateBenchmarkContents verifies item problems surface under benchmark.file.
func TestValidateBenchmarkContents(t *testing.T) {
	dir := t.TempDir()
	bench := "version: 1\nitems:\n  - question: \"\"\n    required_facts: [LLM calls]\n"
	if err := os.WriteFile(filepath.Join(dir, "bench.yml"), []byte(bench), 0o644); err != nil {
		t.Fatalf("write benchmark: %v", err)
	}
	cfg := validConfig()
	cfg.Benchmark.File = "bench.yml"
	err := Validate(&cfg, dir)
	requireIssue(t, err, "benchmark.file")
	if !strings.Contains(err.Error(), "items[0].question: is required") {
		t.Fatalf("expected item path in issue, got %v", err)
	}
}

// TestValidateReportsDuplicateOnce verifies repeated identical issues collapse.
func TestValidateReportsDuplicateOnce(t *testing.T) {
	cfg := validConfig()
	cfg.Agents = append(cfg.Agents, cfg.Agents[0], cfg.Agents[0])
	err := Validate(&cfg, t.TempDir())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	count := 0
	for _, issue := range validationErr.Issues {
		if issue.Field == "agents.id" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one duplicate id issue, got %d in %v", count, validationErr.Issues)
	}
}

// TestEnvOverridesApply verifies PROMPTOPT_* variables win over the file.
func TestEnvOverridesApply(t *testing.T) {
	t.Setenv("PROMPTOPT_MAX_ITEMS", "0")
	t.Setenv("PROMPTOPT_THRESHOLD", "0.9")
	t.Setenv("PROMPTOPT_MAX_RETRIES", "5")
	t.Setenv("PROMPTOPT_LOG_LEVEL", "debug")
	t.Setenv("PROMPTOPT_HISTORY_PATH", "h.duckdb")

	cfg := validConfig()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Benchmark.MaxItems == nil || *cfg.Benchmark.MaxItems != 0 {
		t.Fatalf("expected max_items 0, got %v", cfg.Benchmark.MaxItems)
	}
	if *cfg.Loop.Threshold != 0.9 || *cfg.Loop.MaxRetries != 5 {
		t.Fatalf("unexpected loop overrides %v %v", *cfg.Loop.Threshold, *cfg.Loop.MaxRetries)
	}
	if cfg.LogLevel != "DEBUG" || cfg.History.Path != "h.duckdb" {
		t.Fatalf("unexpected overrides %q %q", cfg.LogLevel, cfg.History.Path)
	}
}

// TestEnvOverridesRejectBadNumbers verifies malformed values are reported.
func TestEnvOverridesRejectBadNumbers(t *testing.T) {
	t.Setenv("PROMPTOPT_MAX_ITEMS", "many")
	cfg := validConfig()
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatalf("expected env parse error")
	}
}

// TestScaffoldThenLoad verifies the init scaffold loads cleanly.
func TestScaffoldThenLoad(t *testing.T) {
	root := t.TempDir()
	path := ConfigPath(root)
	if err := Scaffold(path, ""); err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	if err := Scaffold(path, ""); err == nil {
		t.Fatalf("expected scaffold to refuse overwrite")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Benchmark.MaxItems == nil || *cfg.Benchmark.MaxItems != 2 {
		t.Fatalf("expected scaffold max_items 2, got %v", cfg.Benchmark.MaxItems)
	}
	if cfg.OutputDir != filepath.Join(root, DefaultOutputDir) {
		t.Fatalf("expected resolved output dir, got %q", cfg.OutputDir)
	}
	if cfg.History.Path != filepath.Join(root, ".promptopt", "history.duckdb") {
		t.Fatalf("unexpected history path %q", cfg.History.Path)
	}
}

// TestLoadReportsParseErrors verifies malformed YAML surfaces as a parse error.
func TestLoadReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("version: [\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.HasPrefix(err.Error(), "parse config:") {
		t.Fatalf("expected parse config error, got %v", err)
	}
}

// TestFindConfigPathSearchesParents verifies upward discovery.
func TestFindConfigPathSearchesParents(t *testing.T) {
	root := t.TempDir()
	if err := Scaffold(ConfigPath(root), ""); err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	found, err := FindConfigPath(nested)
	if err != nil {
		t.Fatalf("find config: %v", err)
	}
	if found != ConfigPath(root) {
		t.Fatalf("expected %q, got %q", ConfigPath(root), found)
	}
	if RepoRootFromConfigPath(found) != root {
		t.Fatalf("unexpected repo root %q", RepoRootFromConfigPath(found))
	}
}
