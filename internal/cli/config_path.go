package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"promptopt/internal/config"
	"promptopt/internal/spec"
)

// resolveSpecPath normalizes a config path or finds it from CWD.
func resolveSpecPath(specPath string) (string, error) {
	if strings.TrimSpace(specPath) == "" {
		return config.FindConfigPath("")
	}
	abs, err := filepath.Abs(specPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

// loadConfig resolves and loads the config, reporting failures to stderr.
func loadConfig(specPath string, stderr io.Writer) (spec.Config, bool) {
	resolved, err := resolveSpecPath(specPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to locate config: %v\n", err)
		return spec.Config{}, false
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return spec.Config{}, false
	}
	return cfg, true
}
