//go:build cucumber
// +build cucumber

package cucumber

import (
	"bytes"
	"context"
	"os"

	"github.com/cucumber/godog"
)

// featureState is one CLI scenario: a throwaway repo with a promptopt config,
// the env it changed and the output of the last command.
type featureState struct {
	repoDir    string
	configPath string
	previousWD string
	env        envSnapshot
	// brokenField is the config field the scenario made invalid.
	brokenField string
	stdout      bytes.Buffer
	stderr      bytes.Buffer
	exitCode    int
}

// InitializeScenario registers the promptopt CLI steps.
func InitializeScenario(ctx *godog.ScenarioContext) {
	state := &featureState{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*state = featureState{}
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		state.cleanup()
		return ctx, nil
	})

	ctx.Step(`^a git repository with a valid promptopt configuration$`, state.aGitRepositoryWithValidConfig)
	ctx.Step(`^LLM provider credentials are available in the environment$`, state.llmCredentialsAreAvailable)
	ctx.Step(`^the config is invalid$`, state.theConfigIsInvalid)
	ctx.Step(`^the benchmark file has an item without a question$`, state.theBenchmarkFileHasAnItemWithoutAQuestion)
	ctx.Step(`^I run "([^"]+)"$`, state.iRunCommand)
	ctx.Step(`^the output lists these commands:$`, state.theOutputListsCommands)
	ctx.Step(`^the output contains "([^"]+)"$`, state.theOutputContains)
	ctx.Step(`^the error output contains "([^"]+)"$`, state.theErrorOutputContains)
	ctx.Step(`^the exit code is (\d+)$`, state.theExitCodeIs)
	ctx.Step(`^the exit code is non-zero$`, state.theExitCodeIsNonZero)
	ctx.Step(`^the error message points to the invalid field$`, state.theErrorMessagePointsToInvalidField)
	ctx.Step(`^the file "([^"]+)" exists$`, state.theFileExists)
}

func (s *featureState) cleanup() {
	if s.previousWD != "" {
		_ = os.Chdir(s.previousWD)
	}
	s.env.restore()
	if s.repoDir != "" {
		_ = os.RemoveAll(s.repoDir)
	}
}

// envSnapshot remembers the first value of every variable a scenario sets.
type envSnapshot map[string]*string

func (e *envSnapshot) set(key, value string) error {
	if *e == nil {
		*e = envSnapshot{}
	}
	if _, seen := (*e)[key]; !seen {
		if current, ok := os.LookupEnv(key); ok {
			(*e)[key] = &current
		} else {
			(*e)[key] = nil
		}
	}
	return os.Setenv(key, value)
}

func (e envSnapshot) restore() {
	for key, value := range e {
		if value == nil {
			_ = os.Unsetenv(key)
			continue
		}
		_ = os.Setenv(key, *value)
	}
}
