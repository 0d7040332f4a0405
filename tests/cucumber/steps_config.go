//go:build cucumber
// +build cucumber

package cucumber

import (
	"fmt"
	"os"
	"path/filepath"
)

// aGitRepositoryWithValidConfig sets up a temp repo with a valid config.
func (s *featureState) aGitRepositoryWithValidConfig() error {
	if s.repoDir != "" {
		return nil
	}
	dir, err := os.MkdirTemp("", "promptopt-feature-*")
	if err != nil {
		return fmt.Errorf("create temp repo: %w", err)
	}
	s.repoDir = dir
	s.configPath = filepath.Join(dir, ".promptopt", "config.yml")
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if err := s.writeConfig(validConfigYAML()); err != nil {
		return err
	}
	if err := s.commitRepo(dir); err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working dir: %w", err)
	}
	s.previousWD = wd
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("chdir: %w", err)
	}
	return nil
}

// llmCredentialsAreAvailable stubs the LLM API key for tests.
func (s *featureState) llmCredentialsAreAvailable() error {
	if err := s.env.set("LLM_API_KEY", "test-key"); err != nil {
		return fmt.Errorf("set LLM_API_KEY: %w", err)
	}
	return nil
}

// theConfigIsInvalid replaces the config with an invalid configuration.
func (s *featureState) theConfigIsInvalid() error {
	if err := s.aGitRepositoryWithValidConfig(); err != nil {
		return err
	}
	s.brokenField = "version"
	return s.writeConfig(invalidConfigYAML())
}

// theBenchmarkFileHasAnItemWithoutAQuestion points the config at a benchmark
// file whose first item is missing its question.
func (s *featureState) theBenchmarkFileHasAnItemWithoutAQuestion() error {
	if err := s.aGitRepositoryWithValidConfig(); err != nil {
		return err
	}
	bench := "version: 1\nitems:\n  - question: \"\"\n    required_facts: [\"traces LLM calls\"]\n"
	if err := os.WriteFile(filepath.Join(s.repoDir, "bench.yml"), []byte(bench), 0o644); err != nil {
		return fmt.Errorf("write benchmark: %w", err)
	}
	s.brokenField = "benchmark.file"
	return s.writeConfig(validConfigYAML() + "\nbenchmark:\n  file: bench.yml\n")
}

// writeConfig persists configuration content to the repo config path.
func (s *featureState) writeConfig(contents string) error {
	if s.configPath == "" {
		return fmt.Errorf("config path is not set")
	}
	if err := os.WriteFile(s.configPath, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

const agentsYAML = `providers:
  - id: openrouter
    type: openrouter
    api_key_env: LLM_API_KEY

agents:
  - {id: qa, provider: openrouter, model: openai/gpt-4o-mini}
  - {id: judge, provider: openrouter, model: openai/gpt-4o-mini}
  - {id: researcher, provider: openrouter, model: openai/gpt-4o-mini}
  - {id: prompt_engineer, provider: openrouter, model: openai/gpt-4o-mini}
`

// validConfigYAML returns a minimal valid config for cucumber tests.
func validConfigYAML() string {
	return `version: 1
output_dir: ".promptopt/results"

` + agentsYAML
}

// invalidConfigYAML returns a config with an unsupported version.
func invalidConfigYAML() string {
	return `version: 2
output_dir: ".promptopt/results"

` + agentsYAML
}
