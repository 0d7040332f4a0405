package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestValidateCommandSuccess verifies validate command success path.
func TestValidateCommandSuccess(t *testing.T) {
	body := strings.Replace(testConfig, "  max_items: 2\n", "  max_items: 2\n  file: bench.yml\n", 1)
	dir, specPath := writeConfig(t, body)
	benchBody := []byte(`version: 1
items:
  - question: "What does OpenLLMetry instrument?"
    required_facts: ["LLM calls"]
`)
	if err := os.WriteFile(filepath.Join(dir, "bench.yml"), benchBody, 0o644); err != nil {
		t.Fatalf("write benchmark file: %v", err)
	}

	var out, err bytes.Buffer
	code := Run([]string{"validate", "--spec", specPath}, &out, &err)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (%s)", ExitOK, code, err.String())
	}
	if err.Len() != 0 {
		t.Fatalf("expected no stderr output, got %q", err.String())
	}
	if !strings.Contains(out.String(), "Config OK") {
		t.Fatalf("expected success message, got %q", out.String())
	}
}

// TestValidateCommandFailure verifies every problem is reported.
func TestValidateCommandFailure(t *testing.T) {
	_, specPath := writeConfig(t, `version: 1
providers:
  - id: openrouter
    type: openrouter
agents:
  - {id: qa, provider: missing, model: m}
loop:
  threshold: 1.5
`)

	var out, err bytes.Buffer
	code := Run([]string{"validate", "--spec", specPath}, &out, &err)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout output, got %q", out.String())
	}
	for _, want := range []string{
		"Validation failed",
		`unknown provider "missing"`,
		`missing required agent "judge"`,
		"loop.threshold",
	} {
		if !strings.Contains(err.String(), want) {
			t.Fatalf("expected %q in %q", want, err.String())
		}
	}
}

// TestValidateFindsConfigInParent verifies config discovery from parent dirs.
func TestValidateFindsConfigInParent(t *testing.T) {
	dir, _ := writeConfig(t, testConfig)
	nested := filepath.Join(dir, "nested", "dir")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("create nested dir: %v", err)
	}
	t.Chdir(nested)

	var out, stderr bytes.Buffer
	code := Run([]string{"validate"}, &out, &stderr)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d (%s)", ExitOK, code, stderr.String())
	}
	if !strings.Contains(out.String(), "Config OK") {
		t.Fatalf("expected success message, got %q", out.String())
	}
}

// TestValidateMissingConfig verifies the lookup error is reported.
func TestValidateMissingConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	var out, stderr bytes.Buffer
	code := Run([]string{"validate"}, &out, &stderr)
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(stderr.String(), "Validation failed") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}
