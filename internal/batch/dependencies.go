package batch

import (
	"context"

	"github.com/temirov/git-manager/internal/automation"
	"github.com/temirov/git-manager/internal/githubcli"
	"github.com/temirov/git-manager/internal/overlay"
)

// RepositoryOperations exposes the git operations applied to each repository.
type RepositoryOperations interface {
	Clone(executionContext context.Context, root string, organization string, repository string) error
	CreateBranch(executionContext context.Context, root string, organization string, repository string, branchName string) error
	Checkout(executionContext context.Context, root string, organization string, repository string, branchName string) error
	Stage(executionContext context.Context, root string, organization string, repository string, paths []string) error
	Commit(executionContext context.Context, root string, organization string, repository string, message string) error
	Push(executionContext context.Context, root string, organization string, repository string) error
}

// PlaybookOverlay copies the playbook directory into a cloned repository.
type PlaybookOverlay interface {
	Apply(playbookDirectory string, target overlay.Target) ([]string, error)
}

// AutomationRunner runs the automation entry point inside a repository.
type AutomationRunner interface {
	Run(executionContext context.Context, target automation.Target, extraVariables map[string]any) error
}

// PullRequestCreator opens a pull request for a pushed branch.
type PullRequestCreator interface {
	CreatePullRequest(executionContext context.Context, request githubcli.PullRequestRequest) error
}

// Dependencies groups the collaborators required by the Orchestrator.
// PullRequests is only required when the configuration opens pull requests.
type Dependencies struct {
	Repositories RepositoryOperations
	Overlay      PlaybookOverlay
	Automation   AutomationRunner
	PullRequests PullRequestCreator
}
