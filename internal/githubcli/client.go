package githubcli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/git-manager/internal/execshell"
)

const (
	pullRequestSubcommandConstant     = "pr"
	createSubcommandConstant          = "create"
	titleFlagConstant                 = "--title"
	bodyFlagConstant                  = "--body"
	headFlagConstant                  = "--head"
	requiredValueMessageConstant      = "value required"
	executorNotConfiguredMessage      = "github cli executor not configured"
	invalidInputErrorTemplateConstant = "%s: %s"
	operationErrorTemplateConstant    = "%s operation failed: %s"
	titleFieldNameConstant            = "title"
	headBranchFieldNameConstant       = "head_branch"
	createPullRequestOperationName    = OperationName("CreatePullRequest")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// PullRequestRequest describes a pull request opened from a pushed branch.
type PullRequestRequest struct {
	RepositoryDirectory string
	Title               string
	Body                string
	HeadBranch          string
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the failed operation.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// CreatePullRequest opens a pull request for the head branch of the repository directory.
func (client *Client) CreatePullRequest(executionContext context.Context, request PullRequestRequest) error {
	if len(strings.TrimSpace(request.Title)) == 0 {
		return InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(request.HeadBranch)) == 0 {
		return InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	details := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			createSubcommandConstant,
			titleFlagConstant,
			request.Title,
			bodyFlagConstant,
			request.Body,
			headFlagConstant,
			request.HeadBranch,
		},
		WorkingDirectory: request.RepositoryDirectory,
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, details); executionError != nil {
		return OperationError{Operation: createPullRequestOperationName, Cause: executionError}
	}
	return nil
}
