// Package automation runs the playbook entry point inside each repository.
package automation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/temirov/git-manager/internal/execshell"
	"github.com/temirov/git-manager/internal/runerrors"
)

const (
	// DefaultEntrypointConstant is the playbook executed inside every repository.
	DefaultEntrypointConstant = "run.yml"
	// OrganizationVariableConstant carries the organization of the current repository.
	OrganizationVariableConstant = "org"
	// RepositoryVariableConstant carries the name of the current repository.
	RepositoryVariableConstant   = "repo"
	extraVariablesFlagConstant   = "--extra-vars"
	executorNotConfiguredMessage = "playbook executor not configured"
	runPlaybookOperationName     = "run playbook"
	encodeVariablesOperationName = "encode extra variables"
)

// ErrExecutorNotConfigured indicates the runner was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// PlaybookExecutor is the subset of execshell.ShellExecutor used to run playbooks.
type PlaybookExecutor interface {
	ExecuteAnsiblePlaybook(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Target identifies the repository the playbook runs against.
type Target struct {
	Organization string
	Repository   string
	Directory    string
}

// Runner invokes the automation entry point with per-repository variables.
type Runner struct {
	executor   PlaybookExecutor
	entrypoint string
}

// NewRunner constructs a Runner. An empty entrypoint selects DefaultEntrypointConstant.
func NewRunner(executor PlaybookExecutor, entrypoint string) (*Runner, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	trimmedEntrypoint := strings.TrimSpace(entrypoint)
	if len(trimmedEntrypoint) == 0 {
		trimmedEntrypoint = DefaultEntrypointConstant
	}
	return &Runner{executor: executor, entrypoint: trimmedEntrypoint}, nil
}

// BuildExtraVariables returns a fresh copy of global with org and repo set for the repository.
// The two injected keys always win over global values of the same name.
func BuildExtraVariables(global map[string]any, organization string, repository string) map[string]any {
	variables := make(map[string]any, len(global)+2)
	for variableName, variableValue := range global {
		variables[variableName] = variableValue
	}
	variables[OrganizationVariableConstant] = organization
	variables[RepositoryVariableConstant] = repository
	return variables
}

// Run executes the entry point inside the target directory. The extra
// variables are passed as JSON only when the mapping is non-empty.
func (runner *Runner) Run(executionContext context.Context, target Target, extraVariables map[string]any) error {
	arguments := []string{runner.entrypoint}
	if len(extraVariables) > 0 {
		encodedVariables, encodeError := json.Marshal(extraVariables)
		if encodeError != nil {
			return runerrors.OperationError{
				Kind:         runerrors.KindConfiguration,
				Operation:    encodeVariablesOperationName,
				Organization: target.Organization,
				Repository:   target.Repository,
				Cause:        encodeError,
			}
		}
		arguments = append(arguments, extraVariablesFlagConstant, string(encodedVariables))
	}

	details := execshell.CommandDetails{Arguments: arguments, WorkingDirectory: target.Directory}
	if _, executionError := runner.executor.ExecuteAnsiblePlaybook(executionContext, details); executionError != nil {
		return runerrors.OperationError{
			Kind:         runerrors.KindSubprocess,
			Operation:    runPlaybookOperationName,
			Organization: target.Organization,
			Repository:   target.Repository,
			Cause:        executionError,
		}
	}
	return nil
}
