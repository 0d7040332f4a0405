package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"promptopt/internal/spec"
)

// EnvOverrides are the PROMPTOPT_* variables that take precedence over the file.
type EnvOverrides struct {
	LogLevel    string   `env:"PROMPTOPT_LOG_LEVEL"`
	MaxItems    *int     `env:"PROMPTOPT_MAX_ITEMS"`
	Threshold   *float64 `env:"PROMPTOPT_THRESHOLD"`
	MaxRetries  *int     `env:"PROMPTOPT_MAX_RETRIES"`
	OutputDir   string   `env:"PROMPTOPT_OUTPUT_DIR"`
	HistoryPath string   `env:"PROMPTOPT_HISTORY_PATH"`
}

// LoadEnvOverrides reads overrides from the process environment.
func LoadEnvOverrides() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, fmt.Errorf("parse environment: %w", err)
	}
	return overrides, nil
}

// ApplyEnv merges environment overrides into cfg.
func ApplyEnv(cfg *spec.Config) error {
	overrides, err := LoadEnvOverrides()
	if err != nil {
		return err
	}
	overrides.Apply(cfg)
	return nil
}

// Apply copies every set override into cfg.
func (o EnvOverrides) Apply(cfg *spec.Config) {
	if o.LogLevel != "" {
		cfg.LogLevel = strings.ToUpper(strings.TrimSpace(o.LogLevel))
	}
	if o.MaxItems != nil {
		maxItems := *o.MaxItems
		cfg.Benchmark.MaxItems = &maxItems
	}
	if o.Threshold != nil {
		threshold := *o.Threshold
		cfg.Loop.Threshold = &threshold
	}
	if o.MaxRetries != nil {
		retries := *o.MaxRetries
		cfg.Loop.MaxRetries = &retries
	}
	if o.OutputDir != "" {
		cfg.OutputDir = o.OutputDir
	}
	if o.HistoryPath != "" {
		cfg.History.Path = o.HistoryPath
	}
}

// APIKey returns the value of the variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}
