package config

import (
	"fmt"
	"os"

	"promptopt/internal/spec"
)

// Load reads, parses, normalizes, applies environment overrides, and validates
// a config file. Relative paths are resolved against the repo root.
func Load(path string) (spec.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return spec.Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := spec.ParseConfig(data)
	if err != nil {
		return spec.Config{}, err
	}
	Normalize(&cfg)
	if err := ApplyEnv(&cfg); err != nil {
		return spec.Config{}, err
	}
	root := RepoRootFromConfigPath(path)
	if err := Validate(&cfg, root); err != nil {
		return spec.Config{}, err
	}
	ResolvePaths(&cfg, root)
	return cfg, nil
}
