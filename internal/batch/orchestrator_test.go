package batch_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/git-manager/internal/automation"
	"github.com/temirov/git-manager/internal/batch"
	"github.com/temirov/git-manager/internal/githubcli"
	"github.com/temirov/git-manager/internal/manifest"
	"github.com/temirov/git-manager/internal/overlay"
	"github.com/temirov/git-manager/internal/runerrors"
)

const (
	testWorkspaceRootConstant = "/tmp/git-manager-run"
	testPlaybookDirConstant   = "/opt/playbooks"
)

type recordingPipeline struct {
	events       []string
	variables    []map[string]any
	pullRequests []githubcli.PullRequestRequest
	failures     map[string]error
}

func newRecordingPipeline() *recordingPipeline {
	return &recordingPipeline{failures: map[string]error{}}
}

func (pipeline *recordingPipeline) record(event string) error {
	pipeline.events = append(pipeline.events, event)
	if failure, exists := pipeline.failures[event]; exists {
		return runerrors.OperationError{Kind: runerrors.KindSubprocess, Operation: strings.Fields(event)[0], Cause: failure}
	}
	return nil
}

func (pipeline *recordingPipeline) Clone(_ context.Context, root string, organization string, repository string) error {
	return pipeline.record(fmt.Sprintf("clone %s/%s", organization, repository))
}

func (pipeline *recordingPipeline) CreateBranch(_ context.Context, _ string, organization string, repository string, branchName string) error {
	return pipeline.record(fmt.Sprintf("branch %s/%s %s", organization, repository, branchName))
}

func (pipeline *recordingPipeline) Checkout(_ context.Context, _ string, organization string, repository string, branchName string) error {
	return pipeline.record(fmt.Sprintf("checkout %s/%s %s", organization, repository, branchName))
}

func (pipeline *recordingPipeline) Stage(_ context.Context, _ string, organization string, repository string, paths []string) error {
	return pipeline.record(fmt.Sprintf("add %s/%s %s", organization, repository, strings.Join(paths, ",")))
}

func (pipeline *recordingPipeline) Commit(_ context.Context, _ string, organization string, repository string, message string) error {
	return pipeline.record(fmt.Sprintf("commit %s/%s %s", organization, repository, message))
}

func (pipeline *recordingPipeline) Push(_ context.Context, _ string, organization string, repository string) error {
	return pipeline.record(fmt.Sprintf("push %s/%s", organization, repository))
}

func (pipeline *recordingPipeline) Apply(playbookDirectory string, target overlay.Target) ([]string, error) {
	return []string{"run.yml"}, pipeline.record(fmt.Sprintf("overlay %s %s", playbookDirectory, target.Directory))
}

func (pipeline *recordingPipeline) Run(_ context.Context, target automation.Target, extraVariables map[string]any) error {
	pipeline.variables = append(pipeline.variables, extraVariables)
	return pipeline.record(fmt.Sprintf("playbook %s/%s %s", target.Organization, target.Repository, target.Directory))
}

func (pipeline *recordingPipeline) CreatePullRequest(_ context.Context, request githubcli.PullRequestRequest) error {
	pipeline.pullRequests = append(pipeline.pullRequests, request)
	return pipeline.record(fmt.Sprintf("pr %s %s", request.RepositoryDirectory, request.HeadBranch))
}

func (pipeline *recordingPipeline) dependencies() batch.Dependencies {
	return batch.Dependencies{Repositories: pipeline, Overlay: pipeline, Automation: pipeline, PullRequests: pipeline}
}

func sampleConfiguration(createBranch bool, organizations ...manifest.Organization) manifest.Configuration {
	return manifest.Configuration{
		General: manifest.GeneralSection{
			PullRequestName:   "Roll out CI",
			BranchName:        "feat",
			CommitMessage:     "update",
			StagePaths:        []string{"."},
			PlaybookDirectory: testPlaybookDirConstant,
			CreateBranch:      createBranch,
			ExtraVariables:    map[string]any{"x": 1},
		},
		Organizations: organizations,
	}
}

func TestOrchestratorRunsPhasesInOrder(testInstance *testing.T) {
	testCases := []struct {
		name           string
		createBranch   bool
		expectedEvents []string
	}{
		{
			name:         "create_branch",
			createBranch: true,
			expectedEvents: []string{
				"clone acme/svc-a",
				"branch acme/svc-a feat",
				"checkout acme/svc-a feat",
				"overlay /opt/playbooks /tmp/git-manager-run/acme/svc-a",
				"playbook acme/svc-a /tmp/git-manager-run/acme/svc-a",
				"add acme/svc-a .",
				"commit acme/svc-a update",
				"push acme/svc-a",
			},
		},
		{
			name:         "existing_branch",
			createBranch: false,
			expectedEvents: []string{
				"clone acme/svc-a",
				"checkout acme/svc-a feat",
				"overlay /opt/playbooks /tmp/git-manager-run/acme/svc-a",
				"playbook acme/svc-a /tmp/git-manager-run/acme/svc-a",
				"add acme/svc-a .",
				"commit acme/svc-a update",
				"push acme/svc-a",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			pipeline := newRecordingPipeline()
			orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyAbort, zap.NewNop())
			require.NoError(testInstance, creationError)

			configuration := sampleConfiguration(testCase.createBranch, manifest.Organization{Name: "acme", Repositories: []string{"svc-a"}})
			report, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedEvents, pipeline.events)
			require.Equal(testInstance, []map[string]any{{"x": 1, "org": "acme", "repo": "svc-a"}}, pipeline.variables)
			require.Equal(testInstance, 1, report.Count(batch.OutcomeCompleted))
			require.Empty(testInstance, pipeline.pullRequests)
		})
	}
}

func TestOrchestratorRunsTwoRepositoryBatch(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyAbort, zap.NewNop())
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(true, manifest.Organization{Name: "acme", Repositories: []string{"svc-a", "svc-b"}})
	configuration.General.StagePaths = []string{"README.md"}
	configuration.General.ExtraVariables = nil

	_, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{
		"clone acme/svc-a",
		"branch acme/svc-a feat",
		"checkout acme/svc-a feat",
		"overlay /opt/playbooks /tmp/git-manager-run/acme/svc-a",
		"clone acme/svc-b",
		"branch acme/svc-b feat",
		"checkout acme/svc-b feat",
		"overlay /opt/playbooks /tmp/git-manager-run/acme/svc-b",
		"playbook acme/svc-a /tmp/git-manager-run/acme/svc-a",
		"playbook acme/svc-b /tmp/git-manager-run/acme/svc-b",
		"add acme/svc-a README.md",
		"commit acme/svc-a update",
		"push acme/svc-a",
		"add acme/svc-b README.md",
		"commit acme/svc-b update",
		"push acme/svc-b",
	}, pipeline.events)
	require.Equal(testInstance, []map[string]any{
		{"org": "acme", "repo": "svc-a"},
		{"org": "acme", "repo": "svc-b"},
	}, pipeline.variables)
}

func TestOrchestratorCompletesEachPhaseBeforeTheNext(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyAbort, zap.NewNop())
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(false,
		manifest.Organization{Name: "acme", Repositories: []string{"svc-a", "svc-b"}},
		manifest.Organization{Name: "globex", Repositories: []string{"api"}},
	)
	_, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.NoError(testInstance, runError)

	lastSetup, firstAutomation, lastAutomation, firstPublish := -1, len(pipeline.events), -1, len(pipeline.events)
	for index, event := range pipeline.events {
		switch strings.Fields(event)[0] {
		case "clone", "checkout", "overlay":
			lastSetup = index
		case "playbook":
			firstAutomation = min(firstAutomation, index)
			lastAutomation = index
		case "add", "commit", "push":
			firstPublish = min(firstPublish, index)
		}
	}
	require.Less(testInstance, lastSetup, firstAutomation)
	require.Less(testInstance, lastAutomation, firstPublish)

	require.Len(testInstance, pipeline.variables, 3)
	require.Equal(testInstance, "svc-b", pipeline.variables[1]["repo"])
	require.Equal(testInstance, "globex", pipeline.variables[2]["org"])
	require.Equal(testInstance, "api", pipeline.variables[2]["repo"])
	require.Equal(testInstance, 1, pipeline.variables[2]["x"])
}

func TestOrchestratorAbortsAtFirstPublishFailure(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	pushFailure := errors.New("rejected")
	pipeline.failures["push acme/svc-b"] = pushFailure

	core, observedLogs := observer.New(zapcore.InfoLevel)
	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyAbort, zap.New(core))
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(false, manifest.Organization{Name: "acme", Repositories: []string{"svc-a", "svc-b", "svc-c"}})
	report, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.ErrorIs(testInstance, runError, pushFailure)

	var operationError runerrors.OperationError
	require.ErrorAs(testInstance, runError, &operationError)
	require.Equal(testInstance, "publish", operationError.Phase)

	require.Contains(testInstance, pipeline.events, "push acme/svc-a")
	require.NotContains(testInstance, pipeline.events, "add acme/svc-c .")
	require.NotContains(testInstance, pipeline.events, "push acme/svc-c")
	require.Equal(testInstance, "push acme/svc-b", pipeline.events[len(pipeline.events)-1])

	require.Equal(testInstance, []batch.OutcomeState{batch.OutcomeCompleted, batch.OutcomeFailed, batch.OutcomeSkipped}, outcomeStates(report))
	require.Equal(testInstance, batch.PhasePublish, report.Outcomes[1].Phase)

	failures := observedLogs.FilterMessage("Repository failed").All()
	require.Len(testInstance, failures, 1)
	require.Equal(testInstance, zapcore.WarnLevel, failures[0].Level)
	require.Equal(testInstance, "acme/svc-b", failures[0].ContextMap()["repository"])
	require.Zero(testInstance, observedLogs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestOrchestratorAbortsDuringSetupBeforeAutomation(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	pipeline.failures["clone acme/svc-b"] = errors.New("not found")

	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyAbort, zap.NewNop())
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(false, manifest.Organization{Name: "acme", Repositories: []string{"svc-a", "svc-b"}})
	report, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.Error(testInstance, runError)
	require.Empty(testInstance, pipeline.variables)
	require.Equal(testInstance, []batch.OutcomeState{batch.OutcomeSkipped, batch.OutcomeFailed}, outcomeStates(report))
}

func TestOrchestratorContinuePolicyIsolatesFailures(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	cloneFailure := errors.New("not found")
	playbookFailure := errors.New("task failed")
	pipeline.failures["clone acme/svc-a"] = cloneFailure
	pipeline.failures["playbook acme/svc-c /tmp/git-manager-run/acme/svc-c"] = playbookFailure

	core, observedLogs := observer.New(zapcore.InfoLevel)
	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyContinue, zap.New(core))
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(false, manifest.Organization{Name: "acme", Repositories: []string{"svc-a", "svc-b", "svc-c"}})
	report, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.Error(testInstance, runError)
	require.ErrorIs(testInstance, runError, cloneFailure)
	require.ErrorIs(testInstance, runError, playbookFailure)
	require.Len(testInstance, multierr.Errors(runError), 2)

	require.NotContains(testInstance, pipeline.events, "checkout acme/svc-a feat")
	require.NotContains(testInstance, pipeline.events, "push acme/svc-a")
	require.NotContains(testInstance, pipeline.events, "push acme/svc-c")
	require.Contains(testInstance, pipeline.events, "push acme/svc-b")

	require.Equal(testInstance, []batch.OutcomeState{batch.OutcomeFailed, batch.OutcomeCompleted, batch.OutcomeFailed}, outcomeStates(report))
	require.Equal(testInstance, batch.PhaseSetup, report.Outcomes[0].Phase)
	require.Equal(testInstance, batch.PhaseAutomation, report.Outcomes[2].Phase)

	summaries := observedLogs.FilterMessage("run summary").All()
	require.Len(testInstance, summaries, 1)
	require.Equal(testInstance, int64(1), summaries[0].ContextMap()["completed"])
	require.Equal(testInstance, int64(2), summaries[0].ContextMap()["failed"])
}

func TestOrchestratorOpensPullRequests(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyAbort, zap.NewNop())
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(false, manifest.Organization{Name: "acme", Repositories: []string{"svc-a"}})
	configuration.General.OpenPullRequest = true
	_, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.NoError(testInstance, runError)

	require.Equal(testInstance, "pr /tmp/git-manager-run/acme/svc-a feat", pipeline.events[len(pipeline.events)-1])
	require.Equal(testInstance, []githubcli.PullRequestRequest{{
		RepositoryDirectory: "/tmp/git-manager-run/acme/svc-a",
		Title:               "Roll out CI",
		Body:                "update",
		HeadBranch:          "feat",
	}}, pipeline.pullRequests)
}

func TestOrchestratorRequiresPullRequestCreatorWhenEnabled(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	dependencies := pipeline.dependencies()
	dependencies.PullRequests = nil
	orchestrator, creationError := batch.NewOrchestrator(dependencies, batch.FailurePolicyAbort, zap.NewNop())
	require.NoError(testInstance, creationError)

	configuration := sampleConfiguration(false, manifest.Organization{Name: "acme", Repositories: []string{"svc-a"}})
	configuration.General.OpenPullRequest = true
	_, runError := orchestrator.Run(context.Background(), configuration, testWorkspaceRootConstant)
	require.ErrorIs(testInstance, runError, batch.ErrPullRequestCreatorNotConfigured)
	require.Empty(testInstance, pipeline.events)
}

func TestOrchestratorStopsWhenContextCancelled(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	orchestrator, creationError := batch.NewOrchestrator(pipeline.dependencies(), batch.FailurePolicyContinue, zap.NewNop())
	require.NoError(testInstance, creationError)

	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	configuration := sampleConfiguration(false, manifest.Organization{Name: "acme", Repositories: []string{"svc-a", "svc-b"}})
	report, runError := orchestrator.Run(executionContext, configuration, testWorkspaceRootConstant)
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Empty(testInstance, pipeline.events)
	require.Equal(testInstance, 2, report.Count(batch.OutcomeSkipped))
}

func TestNewOrchestratorValidatesDependencies(testInstance *testing.T) {
	pipeline := newRecordingPipeline()
	testCases := []struct {
		name          string
		mutate        func(dependencies *batch.Dependencies)
		expectedError error
	}{
		{name: "repositories", mutate: func(dependencies *batch.Dependencies) { dependencies.Repositories = nil }, expectedError: batch.ErrRepositoryOperationsNotConfigured},
		{name: "overlay", mutate: func(dependencies *batch.Dependencies) { dependencies.Overlay = nil }, expectedError: batch.ErrOverlayNotConfigured},
		{name: "automation", mutate: func(dependencies *batch.Dependencies) { dependencies.Automation = nil }, expectedError: batch.ErrAutomationNotConfigured},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			dependencies := pipeline.dependencies()
			testCase.mutate(&dependencies)
			_, creationError := batch.NewOrchestrator(dependencies, batch.FailurePolicyAbort, nil)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
		})
	}
}

func outcomeStates(report batch.Report) []batch.OutcomeState {
	states := make([]batch.OutcomeState, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		states = append(states, outcome.State)
	}
	return states
}
