package batch

import (
	"github.com/temirov/git-manager/internal/manifest"
)

// OutcomeState is the terminal state recorded for a repository.
type OutcomeState string

const (
	// OutcomeCompleted marks a repository that finished every phase.
	OutcomeCompleted OutcomeState = OutcomeState("completed")
	// OutcomeFailed marks a repository whose operation failed.
	OutcomeFailed OutcomeState = OutcomeState("failed")
	// OutcomeSkipped marks a repository left unfinished because the run aborted.
	OutcomeSkipped OutcomeState = OutcomeState("skipped")
)

// Phase names one pass over the repositories.
type Phase string

const (
	// PhaseSetup clones, branches, checks out and overlays the playbook files.
	PhaseSetup Phase = Phase("setup")
	// PhaseAutomation runs the playbook entry point in each working copy.
	PhaseAutomation Phase = Phase("automation")
	// PhasePublish stages, commits and pushes, then optionally opens a pull request.
	PhasePublish Phase = Phase("publish")
)

// Outcome records how a single repository ended.
type Outcome struct {
	Reference manifest.RepositoryReference
	State     OutcomeState
	Phase     Phase
	Error     error
}

// Report lists repository outcomes in configuration order.
type Report struct {
	Outcomes []Outcome
}

// Count returns the number of outcomes in the requested state.
func (report Report) Count(state OutcomeState) int {
	count := 0
	for _, outcome := range report.Outcomes {
		if outcome.State == state {
			count++
		}
	}
	return count
}
