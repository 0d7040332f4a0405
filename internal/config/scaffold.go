package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scaffold writes a starter config at configPath. It refuses to overwrite.
func Scaffold(configPath, outputDir string) error {
	if strings.TrimSpace(configPath) == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(configPath); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", configPath)
		}
		return fmt.Errorf("config file already exists at %q", configPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = DefaultOutputDir
	}

	content, err := renderScaffoldConfig(outputDir)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
