package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	commandArgumentsJoinSeparatorConstant   = " "
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	defaultPushTargetLabelConstant          = "upstream"
)

const (
	gitCloneSubcommandNameConstant    = "clone"
	gitBranchSubcommandNameConstant   = "branch"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitAddSubcommandNameConstant      = "add"
	gitCommitSubcommandNameConstant   = "commit"
	gitPushSubcommandNameConstant     = "push"
	gitMessageFlagConstant            = "-m"
	githubPullRequestSubcommandConst  = "pr"
	githubCreateSubcommandConstant    = "create"
	githubTitleFlagConstant           = "--title"
)

const (
	gitCloneStartTemplateConstant                   = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant                 = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                 = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant        = "Unable to clone %s into %s: %s"
	gitBranchCreationStartTemplateConstant          = "Creating branch %s in %s"
	gitBranchCreationSuccessTemplateConstant        = "Created branch %s in %s"
	gitBranchCreationFailureTemplateConstant        = "Failed to create branch %s in %s (exit code %d%s)"
	gitBranchCreationExecutionFailureTemplate       = "Unable to create branch %s in %s: %s"
	gitCheckoutStartTemplateConstant                = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant              = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant              = "Failed to switch %s to branch %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant     = "Unable to switch %s to branch %s: %s"
	gitAddStartTemplateConstant                     = "Staging %s in %s"
	gitAddSuccessTemplateConstant                   = "Staged %s in %s"
	gitAddFailureTemplateConstant                   = "Failed to stage %s in %s (exit code %d%s)"
	gitAddExecutionFailureTemplateConstant          = "Unable to stage %s in %s: %s"
	gitCommitStartTemplateConstant                  = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant                = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant                = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCommitExecutionFailureTemplateConstant       = "Unable to create commit in %s with message %q: %s"
	gitPushStartTemplateConstant                    = "Pushing current branch to %s from %s"
	gitPushSuccessTemplateConstant                  = "Pushed current branch to %s from %s"
	gitPushFailureTemplateConstant                  = "Failed to push current branch to %s from %s (exit code %d%s)"
	gitPushExecutionFailureTemplateConstant         = "Unable to push current branch to %s from %s: %s"
	ansiblePlaybookStartTemplateConstant            = "Running playbook %s in %s"
	ansiblePlaybookSuccessTemplateConstant          = "Finished playbook %s in %s"
	ansiblePlaybookFailureTemplateConstant          = "Playbook %s failed in %s (exit code %d%s)"
	ansiblePlaybookExecutionFailureTemplate         = "Unable to run playbook %s in %s: %s"
	githubPullRequestCreateStartTemplateConstant    = "Opening pull request %q from %s"
	githubPullRequestCreateSuccessTemplateConstant  = "Opened pull request %q from %s"
	githubPullRequestCreateFailureTemplateConstant  = "Failed to open pull request %q from %s (exit code %d%s)"
	githubPullRequestCreateExecutionFailureTemplate = "Unable to open pull request %q from %s: %s"
)

type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandAnsiblePlaybook:
		playbook := formatter.ensureValue(formatter.argumentAtIndex(command.Details.Arguments, 0))
		templates := stageTemplates{
			start:            ansiblePlaybookStartTemplateConstant,
			success:          ansiblePlaybookSuccessTemplateConstant,
			failure:          ansiblePlaybookFailureTemplateConstant,
			executionFailure: ansiblePlaybookExecutionFailureTemplate,
		}
		return formatter.render(templates, []any{playbook, formatter.describeWorkingDirectory(command)}, result, failure, stage)
	case CommandGitHub:
		return formatter.describeGitHubMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	subcommand := strings.TrimSpace(arguments[0])
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		templates := stageTemplates{
			start:            gitCloneStartTemplateConstant,
			success:          gitCloneSuccessTemplateConstant,
			failure:          gitCloneFailureTemplateConstant,
			executionFailure: gitCloneExecutionFailureTemplateConstant,
		}
		source := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
		destination := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
		return formatter.render(templates, []any{source, destination}, result, failure, stage)
	case gitBranchSubcommandNameConstant:
		templates := stageTemplates{
			start:            gitBranchCreationStartTemplateConstant,
			success:          gitBranchCreationSuccessTemplateConstant,
			failure:          gitBranchCreationFailureTemplateConstant,
			executionFailure: gitBranchCreationExecutionFailureTemplate,
		}
		branchName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
		return formatter.render(templates, []any{branchName, workingDirectory}, result, failure, stage)
	case gitCheckoutSubcommandNameConstant:
		templates := stageTemplates{
			start:            gitCheckoutStartTemplateConstant,
			success:          gitCheckoutSuccessTemplateConstant,
			failure:          gitCheckoutFailureTemplateConstant,
			executionFailure: gitCheckoutExecutionFailureTemplateConstant,
		}
		branchName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
		return formatter.render(templates, []any{workingDirectory, branchName}, result, failure, stage)
	case gitAddSubcommandNameConstant:
		templates := stageTemplates{
			start:            gitAddStartTemplateConstant,
			success:          gitAddSuccessTemplateConstant,
			failure:          gitAddFailureTemplateConstant,
			executionFailure: gitAddExecutionFailureTemplateConstant,
		}
		paths := formatter.ensureValue(strings.Join(arguments[1:], commandArgumentsJoinSeparatorConstant))
		return formatter.render(templates, []any{paths, workingDirectory}, result, failure, stage)
	case gitCommitSubcommandNameConstant:
		templates := stageTemplates{
			start:            gitCommitStartTemplateConstant,
			success:          gitCommitSuccessTemplateConstant,
			failure:          gitCommitFailureTemplateConstant,
			executionFailure: gitCommitExecutionFailureTemplateConstant,
		}
		message := formatter.flagValue(arguments, gitMessageFlagConstant)
		return formatter.render(templates, []any{workingDirectory, message}, result, failure, stage)
	case gitPushSubcommandNameConstant:
		templates := stageTemplates{
			start:            gitPushStartTemplateConstant,
			success:          gitPushSuccessTemplateConstant,
			failure:          gitPushFailureTemplateConstant,
			executionFailure: gitPushExecutionFailureTemplateConstant,
		}
		target := formatter.argumentAtIndex(arguments, 1)
		if len(target) == 0 {
			target = defaultPushTargetLabelConstant
		}
		return formatter.render(templates, []any{target, workingDirectory}, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if formatter.argumentAtIndex(arguments, 0) != githubPullRequestSubcommandConst || formatter.argumentAtIndex(arguments, 1) != githubCreateSubcommandConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	templates := stageTemplates{
		start:            githubPullRequestCreateStartTemplateConstant,
		success:          githubPullRequestCreateSuccessTemplateConstant,
		failure:          githubPullRequestCreateFailureTemplateConstant,
		executionFailure: githubPullRequestCreateExecutionFailureTemplate,
	}
	title := formatter.flagValue(arguments, githubTitleFlagConstant)
	return formatter.render(templates, []any{title, formatter.describeWorkingDirectory(command)}, result, failure, stage)
}

func (formatter CommandMessageFormatter) render(templates stageTemplates, values []any, result ExecutionResult, failure error, stage messageStage) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		failureValues := append(append([]any{}, values...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(templates.failure, failureValues...)
	default:
		executionValues := append(append([]any{}, values...), formatter.describeFailure(failure))
		return fmt.Sprintf(templates.executionFailure, executionValues...)
	}
}

// buildGenericMessage covers commands without a dedicated phrasing by naming the full command line.
func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	templates := stageTemplates{
		start:            genericStartTemplateConstant,
		success:          genericSuccessTemplateConstant,
		failure:          genericFailureTemplateConstant,
		executionFailure: genericExecutionFailureTemplateConstant,
	}
	commandLabel := command.CommandLine()
	if directory := strings.TrimSpace(command.Details.WorkingDirectory); len(directory) > 0 {
		commandLabel += fmt.Sprintf(workingDirectorySuffixTemplateConstant, directory)
	}
	return formatter.render(templates, []any{commandLabel}, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	if directory := strings.TrimSpace(command.Details.WorkingDirectory); len(directory) > 0 {
		return directory
	}
	return defaultWorkingDirectoryLabelConstant
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	if trimmed := strings.TrimSpace(standardError); len(trimmed) > 0 {
		return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) flagValue(arguments []string, flag string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if arguments[argumentIndex] == flag {
			return arguments[argumentIndex+1]
		}
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return value
}
