//go:build cucumber
// +build cucumber

package cucumber

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"promptopt/internal/cli"
)

// iRunCommand runs a promptopt command line in-process.
func (s *featureState) iRunCommand(command string) error {
	args, err := splitCommand(command)
	if err != nil {
		return err
	}
	if len(args) > 0 && args[0] == "promptopt" {
		args = args[1:]
	}
	s.stdout.Reset()
	s.stderr.Reset()
	s.exitCode = cli.Run(args, &s.stdout, &s.stderr)
	return nil
}

// splitCommand splits on spaces, keeping single-quoted arguments whole.
func splitCommand(command string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range command {
		switch {
		case r == '\'':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", command)
	}
	if started {
		args = append(args, current.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	return args, nil
}

// commitRepo initializes dir as a git repo and commits everything in it, so
// the docs snapshot sees a clean tree.
func (s *featureState) commitRepo(dir string) error {
	if err := os.WriteFile(dir+"/README.md", []byte("# Docs\n\nOpenLLMetry traces LLM calls.\n"), 0o644); err != nil {
		return fmt.Errorf("write README: %w", err)
	}
	steps := [][]string{
		{"-c", "init.defaultBranch=main", "init"},
		{"add", "-A"},
		{"commit", "-m", "promptopt fixture"},
	}
	for _, args := range steps {
		if err := runGit(dir, args...); err != nil {
			return err
		}
	}
	return nil
}

func runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=promptopt",
		"GIT_AUTHOR_EMAIL=promptopt@example.com",
		"GIT_COMMITTER_NAME=promptopt",
		"GIT_COMMITTER_EMAIL=promptopt@example.com",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %v (%s)", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
