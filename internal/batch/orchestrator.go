package batch

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/temirov/git-manager/internal/automation"
	"github.com/temirov/git-manager/internal/githubcli"
	"github.com/temirov/git-manager/internal/manifest"
	"github.com/temirov/git-manager/internal/overlay"
	"github.com/temirov/git-manager/internal/runerrors"
	"github.com/temirov/git-manager/internal/workspace"
)

const (
	phaseStartedMessageConstant      = "Phase started"
	phaseFinishedMessageConstant     = "Phase finished"
	repositoryFailedMessageConstant  = "Repository failed"
	overlayAppliedMessageConstant    = "Applied playbook overlay"
	runSummaryMessageConstant        = "run summary"
	runAbortedMessageConstant        = "Run aborted"
	logFieldPhaseConstant            = "phase"
	logFieldRepositoryCountConstant  = "repositories"
	logFieldRepositoryConstant       = "repository"
	logFieldFilesConstant            = "files"
	logFieldPolicyConstant           = "failure_policy"
	logFieldCompletedConstant        = "completed"
	logFieldFailedConstant           = "failed"
	logFieldSkippedConstant          = "skipped"
	openPullRequestOperationConstant = "open pull request"
	noPhaseCompletedIndexConstant    = -1
)

var (
	// ErrRepositoryOperationsNotConfigured indicates the git operations dependency is missing.
	ErrRepositoryOperationsNotConfigured = errors.New("repository operations not configured")
	// ErrOverlayNotConfigured indicates the playbook overlay dependency is missing.
	ErrOverlayNotConfigured = errors.New("playbook overlay not configured")
	// ErrAutomationNotConfigured indicates the automation runner dependency is missing.
	ErrAutomationNotConfigured = errors.New("automation runner not configured")
	// ErrPullRequestCreatorNotConfigured indicates pull requests were requested without a creator.
	ErrPullRequestCreatorNotConfigured = errors.New("pull request creator not configured")
)

type phaseStep func(executionContext context.Context, configuration manifest.Configuration, workspaceRoot string, reference manifest.RepositoryReference) error

type phaseDefinition struct {
	phase Phase
	step  phaseStep
}

type repositoryProgress struct {
	outcome            Outcome
	lastCompletedPhase int
}

// Orchestrator runs the three phases over every configured repository.
type Orchestrator struct {
	dependencies Dependencies
	policy       FailurePolicy
	logger       *zap.Logger
}

// NewOrchestrator validates the dependencies and constructs an Orchestrator.
func NewOrchestrator(dependencies Dependencies, policy FailurePolicy, logger *zap.Logger) (*Orchestrator, error) {
	if dependencies.Repositories == nil {
		return nil, ErrRepositoryOperationsNotConfigured
	}
	if dependencies.Overlay == nil {
		return nil, ErrOverlayNotConfigured
	}
	if dependencies.Automation == nil {
		return nil, ErrAutomationNotConfigured
	}
	if len(policy) == 0 {
		policy = FailurePolicyAbort
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{dependencies: dependencies, policy: policy, logger: logger}, nil
}

// Run drives the repositories of configuration through setup, automation, and
// publish inside workspaceRoot. Under the abort policy the first failure is
// returned immediately. Under the continue policy the failing repository is
// excluded from later phases and the failures are returned combined.
func (orchestrator *Orchestrator) Run(executionContext context.Context, configuration manifest.Configuration, workspaceRoot string) (Report, error) {
	if configuration.General.OpenPullRequest && orchestrator.dependencies.PullRequests == nil {
		return Report{}, ErrPullRequestCreatorNotConfigured
	}

	references := configuration.RepositoryReferences()
	progress := make([]*repositoryProgress, len(references))
	for index, reference := range references {
		progress[index] = &repositoryProgress{
			outcome:            Outcome{Reference: reference},
			lastCompletedPhase: noPhaseCompletedIndexConstant,
		}
	}

	phases := []phaseDefinition{
		{phase: PhaseSetup, step: orchestrator.setupRepository},
		{phase: PhaseAutomation, step: orchestrator.automateRepository},
		{phase: PhasePublish, step: orchestrator.publishRepository},
	}

	var aggregatedError error
	for phaseIndex, definition := range phases {
		orchestrator.logger.Info(phaseStartedMessageConstant, zap.String(logFieldPhaseConstant, string(definition.phase)), zap.Int(logFieldRepositoryCountConstant, len(references)))

		for _, repository := range progress {
			if repository.outcome.State == OutcomeFailed {
				continue
			}

			if contextError := executionContext.Err(); contextError != nil {
				orchestrator.logger.Warn(runAbortedMessageConstant, zap.String(logFieldPhaseConstant, string(definition.phase)), zap.Error(contextError))
				report := orchestrator.finish(progress, len(phases))
				return report, multierr.Append(aggregatedError, contextError)
			}

			stepError := definition.step(executionContext, configuration, workspaceRoot, repository.outcome.Reference)
			if stepError == nil {
				repository.lastCompletedPhase = phaseIndex
				continue
			}

			phasedError := runerrors.WithPhase(stepError, string(definition.phase))
			repository.outcome.State = OutcomeFailed
			repository.outcome.Phase = definition.phase
			repository.outcome.Error = phasedError
			orchestrator.logger.Warn(
				repositoryFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.outcome.Reference.String()),
				zap.String(logFieldPhaseConstant, string(definition.phase)),
				zap.String(logFieldPolicyConstant, string(orchestrator.policy)),
				zap.Error(phasedError),
			)

			if orchestrator.policy != FailurePolicyContinue {
				report := orchestrator.finish(progress, len(phases))
				return report, phasedError
			}
			aggregatedError = multierr.Append(aggregatedError, phasedError)
		}

		orchestrator.logger.Info(phaseFinishedMessageConstant, zap.String(logFieldPhaseConstant, string(definition.phase)))
	}

	return orchestrator.finish(progress, len(phases)), aggregatedError
}

func (orchestrator *Orchestrator) setupRepository(executionContext context.Context, configuration manifest.Configuration, workspaceRoot string, reference manifest.RepositoryReference) error {
	repositories := orchestrator.dependencies.Repositories
	general := configuration.General

	if cloneError := repositories.Clone(executionContext, workspaceRoot, reference.Organization, reference.Repository); cloneError != nil {
		return cloneError
	}
	if general.CreateBranch {
		if branchError := repositories.CreateBranch(executionContext, workspaceRoot, reference.Organization, reference.Repository, general.BranchName); branchError != nil {
			return branchError
		}
	}
	if checkoutError := repositories.Checkout(executionContext, workspaceRoot, reference.Organization, reference.Repository, general.BranchName); checkoutError != nil {
		return checkoutError
	}

	target := overlay.Target{
		Organization: reference.Organization,
		Repository:   reference.Repository,
		Directory:    workspace.RepositoryPath(workspaceRoot, reference.Organization, reference.Repository),
	}
	copiedFiles, overlayError := orchestrator.dependencies.Overlay.Apply(general.PlaybookDirectory, target)
	if overlayError != nil {
		return overlayError
	}
	orchestrator.logger.Debug(overlayAppliedMessageConstant, zap.String(logFieldRepositoryConstant, reference.String()), zap.Strings(logFieldFilesConstant, copiedFiles))
	return nil
}

func (orchestrator *Orchestrator) automateRepository(executionContext context.Context, configuration manifest.Configuration, workspaceRoot string, reference manifest.RepositoryReference) error {
	extraVariables := automation.BuildExtraVariables(configuration.General.ExtraVariables, reference.Organization, reference.Repository)
	target := automation.Target{
		Organization: reference.Organization,
		Repository:   reference.Repository,
		Directory:    workspace.RepositoryPath(workspaceRoot, reference.Organization, reference.Repository),
	}
	return orchestrator.dependencies.Automation.Run(executionContext, target, extraVariables)
}

func (orchestrator *Orchestrator) publishRepository(executionContext context.Context, configuration manifest.Configuration, workspaceRoot string, reference manifest.RepositoryReference) error {
	repositories := orchestrator.dependencies.Repositories
	general := configuration.General

	if stageError := repositories.Stage(executionContext, workspaceRoot, reference.Organization, reference.Repository, general.StagePaths); stageError != nil {
		return stageError
	}
	if commitError := repositories.Commit(executionContext, workspaceRoot, reference.Organization, reference.Repository, general.CommitMessage); commitError != nil {
		return commitError
	}
	if pushError := repositories.Push(executionContext, workspaceRoot, reference.Organization, reference.Repository); pushError != nil {
		return pushError
	}
	if !general.OpenPullRequest {
		return nil
	}

	request := githubcli.PullRequestRequest{
		RepositoryDirectory: workspace.RepositoryPath(workspaceRoot, reference.Organization, reference.Repository),
		Title:               general.PullRequestName,
		Body:                general.PullRequestDescription(),
		HeadBranch:          general.BranchName,
	}
	if pullRequestError := orchestrator.dependencies.PullRequests.CreatePullRequest(executionContext, request); pullRequestError != nil {
		return runerrors.OperationError{
			Kind:         runerrors.KindSubprocess,
			Operation:    openPullRequestOperationConstant,
			Organization: reference.Organization,
			Repository:   reference.Repository,
			Cause:        pullRequestError,
		}
	}
	return nil
}

// finish converts progress into the final report and logs the summary.
func (orchestrator *Orchestrator) finish(progress []*repositoryProgress, phaseCount int) Report {
	report := Report{Outcomes: make([]Outcome, 0, len(progress))}
	for _, repository := range progress {
		outcome := repository.outcome
		if outcome.State != OutcomeFailed {
			if repository.lastCompletedPhase == phaseCount-1 {
				outcome.State = OutcomeCompleted
			} else {
				outcome.State = OutcomeSkipped
			}
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	orchestrator.logger.Info(
		runSummaryMessageConstant,
		zap.Int(logFieldCompletedConstant, report.Count(OutcomeCompleted)),
		zap.Int(logFieldFailedConstant, report.Count(OutcomeFailed)),
		zap.Int(logFieldSkippedConstant, report.Count(OutcomeSkipped)),
	)
	return report
}
