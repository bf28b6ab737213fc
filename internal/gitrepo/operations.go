package gitrepo

import (
	"context"
	"errors"

	"github.com/temirov/git-manager/internal/execshell"
	"github.com/temirov/git-manager/internal/runerrors"
	"github.com/temirov/git-manager/internal/workspace"
)

const (
	gitCloneSubcommandConstant    = "clone"
	gitBranchSubcommandConstant   = "branch"
	gitCheckoutSubcommandConstant = "checkout"
	gitAddSubcommandConstant      = "add"
	gitCommitSubcommandConstant   = "commit"
	gitPushSubcommandConstant     = "push"
	gitMessageFlagConstant        = "-m"
	executorNotConfiguredMessage  = "git executor not configured"
	cloneOperationNameConstant    = "clone"
	createBranchOperationName     = "create branch"
	checkoutOperationNameConstant = "checkout"
	stageOperationNameConstant    = "stage"
	commitOperationNameConstant   = "commit"
	pushOperationNameConstant     = "push"
	terminalPromptVariableName    = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValue   = "0"
)

// ErrExecutorNotConfigured indicates the operations were constructed without a git executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// GitExecutor is the subset of execshell.ShellExecutor used for git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryOperations wraps the git commands run against a single repository.
type RepositoryOperations struct {
	executor GitExecutor
	host     string
}

// NewRepositoryOperations constructs RepositoryOperations that clone from host.
func NewRepositoryOperations(executor GitExecutor, host string) (*RepositoryOperations, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryOperations{executor: executor, host: host}, nil
}

// Clone clones the repository into <root>/<org>/<repo>, running git from root.
func (operations *RepositoryOperations) Clone(executionContext context.Context, root string, organization string, repository string) error {
	details := execshell.CommandDetails{
		Arguments: []string{
			gitCloneSubcommandConstant,
			CloneURL(operations.host, organization, repository),
			workspace.RepositoryPath(root, organization, repository),
		},
		WorkingDirectory:     root,
		EnvironmentVariables: nonInteractiveEnvironment(),
	}
	return operations.run(executionContext, cloneOperationNameConstant, organization, repository, details)
}

// CreateBranch creates branchName without switching to it.
func (operations *RepositoryOperations) CreateBranch(executionContext context.Context, root string, organization string, repository string, branchName string) error {
	return operations.runInRepository(executionContext, createBranchOperationName, root, organization, repository, gitBranchSubcommandConstant, branchName)
}

// Checkout switches the working copy to branchName.
func (operations *RepositoryOperations) Checkout(executionContext context.Context, root string, organization string, repository string, branchName string) error {
	return operations.runInRepository(executionContext, checkoutOperationNameConstant, root, organization, repository, gitCheckoutSubcommandConstant, branchName)
}

// Stage stages the path patterns in their configured order.
func (operations *RepositoryOperations) Stage(executionContext context.Context, root string, organization string, repository string, paths []string) error {
	arguments := append([]string{gitAddSubcommandConstant}, paths...)
	return operations.runInRepository(executionContext, stageOperationNameConstant, root, organization, repository, arguments...)
}

// Commit records staged changes with message.
func (operations *RepositoryOperations) Commit(executionContext context.Context, root string, organization string, repository string, message string) error {
	return operations.runInRepository(executionContext, commitOperationNameConstant, root, organization, repository, gitCommitSubcommandConstant, gitMessageFlagConstant, message)
}

// Push pushes the current branch to its remote.
func (operations *RepositoryOperations) Push(executionContext context.Context, root string, organization string, repository string) error {
	details := execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant},
		WorkingDirectory:     workspace.RepositoryPath(root, organization, repository),
		EnvironmentVariables: nonInteractiveEnvironment(),
	}
	return operations.run(executionContext, pushOperationNameConstant, organization, repository, details)
}

// nonInteractiveEnvironment makes network commands fail instead of waiting on a credential prompt.
func nonInteractiveEnvironment() map[string]string {
	return map[string]string{terminalPromptVariableName: terminalPromptDisabledValue}
}

func (operations *RepositoryOperations) runInRepository(executionContext context.Context, operationName string, root string, organization string, repository string, arguments ...string) error {
	details := execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: workspace.RepositoryPath(root, organization, repository),
	}
	return operations.run(executionContext, operationName, organization, repository, details)
}

func (operations *RepositoryOperations) run(executionContext context.Context, operationName string, organization string, repository string, details execshell.CommandDetails) error {
	if _, executionError := operations.executor.ExecuteGit(executionContext, details); executionError != nil {
		return runerrors.OperationError{
			Kind:         runerrors.KindSubprocess,
			Operation:    operationName,
			Organization: organization,
			Repository:   repository,
			Cause:        executionError,
		}
	}
	return nil
}
