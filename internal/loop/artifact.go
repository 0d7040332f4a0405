package loop

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultArtifactPath is where a successful prompt is written.
const DefaultArtifactPath = "optimized_prompt.txt"

// ArtifactWriter persists the final prompt on success.
type ArtifactWriter interface {
	WriteArtifact(score float64, prompt string) (string, error)
}

// FileArtifact writes the artifact to Path.
type FileArtifact struct {
	Path string
}

// FormatArtifact renders the fixed "Score/Prompt" layout.
func FormatArtifact(score float64, prompt string) string {
	return fmt.Sprintf("Score: %.2f\nPrompt:\n%s", score, prompt)
}

// WriteArtifact writes the artifact and returns its path.
func (a FileArtifact) WriteArtifact(score float64, prompt string) (string, error) {
	path := a.Path
	if path == "" {
		path = DefaultArtifactPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(FormatArtifact(score, prompt)), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
