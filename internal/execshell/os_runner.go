package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
)

const (
	environmentPairSeparatorConstant = "="
)

// OSCommandRunner starts real processes through os/exec.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an OSCommandRunner.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run starts the command and waits for it. A non-zero exit status is reported
// through ExecutionResult.ExitCode; only failures to start or wait are errors.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(command.Details.EnvironmentVariables)

	var capturedOutput, capturedError bytes.Buffer
	process.Stdout = &capturedOutput
	process.Stderr = &capturedError

	result := ExecutionResult{}
	if runError := process.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) || executionContext.Err() != nil {
			return ExecutionResult{}, runError
		}
		result.ExitCode = exitError.ExitCode()
	}
	result.StandardOutput = capturedOutput.String()
	result.StandardError = capturedError.String()
	return result, nil
}

// mergeEnvironment returns nil when no overrides exist so the child inherits
// the parent environment unchanged.
func mergeEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	overrideNames := make([]string, 0, len(overrides))
	for overrideName := range overrides {
		overrideNames = append(overrideNames, overrideName)
	}
	sort.Strings(overrideNames)

	environment := os.Environ()
	for _, overrideName := range overrideNames {
		environment = append(environment, overrideName+environmentPairSeparatorConstant+overrides[overrideName])
	}
	return environment
}
