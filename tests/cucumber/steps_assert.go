//go:build cucumber
// +build cucumber

package cucumber

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// theOutputListsCommands asserts the output contains expected command names.
func (s *featureState) theOutputListsCommands(table *godog.Table) error {
	output := s.stdout.String()
	for _, row := range table.Rows {
		for _, cell := range row.Cells {
			command := strings.TrimSpace(cell.Value)
			if command == "" {
				continue
			}
			if !strings.Contains(output, command) {
				return fmt.Errorf("expected command %q in output", command)
			}
		}
	}
	return nil
}

// theOutputContains checks stdout for a fragment.
func (s *featureState) theOutputContains(fragment string) error {
	if !strings.Contains(s.stdout.String(), fragment) {
		return fmt.Errorf("expected %q in output, got %q", fragment, s.stdout.String())
	}
	return nil
}

// theErrorOutputContains checks stderr for a fragment.
func (s *featureState) theErrorOutputContains(fragment string) error {
	if !strings.Contains(s.stderr.String(), fragment) {
		return fmt.Errorf("expected %q in error output, got %q", fragment, s.stderr.String())
	}
	return nil
}

// theExitCodeIs asserts the exact CLI exit code.
func (s *featureState) theExitCodeIs(code int) error {
	if s.exitCode != code {
		return fmt.Errorf("expected exit code %d, got %d (stderr: %s)", code, s.exitCode, s.stderr.String())
	}
	return nil
}

// theExitCodeIsNonZero asserts that the CLI returned an error code.
func (s *featureState) theExitCodeIsNonZero() error {
	if s.exitCode == 0 {
		return fmt.Errorf("expected non-zero exit code")
	}
	return nil
}

// theErrorMessagePointsToInvalidField checks stderr names the field the scenario broke.
func (s *featureState) theErrorMessagePointsToInvalidField() error {
	if s.brokenField == "" {
		return fmt.Errorf("scenario did not break a config field")
	}
	errOutput := s.stderr.String()
	if !strings.Contains(errOutput, s.brokenField+":") {
		return fmt.Errorf("expected error to name %s, got %q", s.brokenField, errOutput)
	}
	return nil
}

// theFileExists checks a path relative to the scenario repo.
func (s *featureState) theFileExists(path string) error {
	if _, err := os.Stat(filepath.Join(s.repoDir, path)); err != nil {
		return fmt.Errorf("expected %s to exist: %w", path, err)
	}
	return nil
}
