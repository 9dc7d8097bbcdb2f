package execshell

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
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
	standardErrorMessageSuffixTemplate      = ": %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	unknownFailureMessageConstant           = "unknown error"
	argumentRenderingSeparatorConstant      = " "
)

const (
	gitPushSubcommandNameConstant        = "push"
	gitCloneSubcommandNameConstant       = "clone"
	gitCheckoutSubcommandNameConstant    = "checkout"
	gitDiffSubcommandNameConstant        = "diff"
	gitLogSubcommandNameConstant         = "log"
	gitRevParseSubcommandNameConstant    = "rev-parse"
	gitRevListSubcommandNameConstant     = "rev-list"
	gitFetchSubcommandNameConstant       = "fetch"
	gitConfigSubcommandNameConstant      = "config"
	gitSymbolicRefSubcommandNameConstant = "symbolic-ref"
	gitLSRemoteSubcommandNameConstant    = "ls-remote"
)

const (
	githubPullRequestSubcommandConstant = "pr"
	githubViewSubcommandConstant        = "view"
	githubCreateSubcommandConstant      = "create"
	githubMergeSubcommandConstant       = "merge"
	githubRepoSubcommandConstant        = "repo"
)

var gitSubcommandActivityLabels = map[string]string{
	gitPushSubcommandNameConstant:        "push",
	gitCloneSubcommandNameConstant:       "clone",
	gitCheckoutSubcommandNameConstant:    "branch checkout",
	gitDiffSubcommandNameConstant:        "diff collection",
	gitLogSubcommandNameConstant:         "history inspection",
	gitRevParseSubcommandNameConstant:    "revision resolution",
	gitRevListSubcommandNameConstant:     "revision counting",
	gitFetchSubcommandNameConstant:       "fetch",
	gitConfigSubcommandNameConstant:      "configuration lookup",
	gitSymbolicRefSubcommandNameConstant: "reference resolution",
	gitLSRemoteSubcommandNameConstant:    "remote reference listing",
}

var githubSubcommandActivityLabels = map[string]string{
	githubViewSubcommandConstant:   "pull request lookup",
	githubCreateSubcommandConstant: "pull request creation",
	githubMergeSubcommandConstant:  "pull request merge",
}

const (
	gitActivityStartTemplateConstant            = "Starting git %s%s"
	gitActivitySuccessTemplateConstant          = "Finished git %s%s"
	gitActivityFailureTemplateConstant          = "git %s failed%s (exit code %d%s)"
	gitActivityExecutionFailureTemplateConstant = "git %s could not run%s: %s"
	githubActivityStartTemplateConstant         = "Starting GitHub %s%s"
	githubActivitySuccessTemplateConstant       = "Finished GitHub %s%s"
	githubActivityFailureTemplate               = "GitHub %s failed%s (exit code %d%s)"
	githubActivityExecutionFailureTemplate      = "GitHub %s could not run%s: %s"
	githubRepositoryLookupActivityLabelConstant = "repository lookup"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
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
		return formatter.describeActivityMessage(command, result, failure, stage, formatter.gitActivityLabel(command), gitStageTemplates)
	case CommandGitHub:
		return formatter.describeActivityMessage(command, result, failure, stage, formatter.githubActivityLabel(command), githubStageTemplates)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var gitStageTemplates = stageTemplates{
	start:            gitActivityStartTemplateConstant,
	success:          gitActivitySuccessTemplateConstant,
	failure:          gitActivityFailureTemplateConstant,
	executionFailure: gitActivityExecutionFailureTemplateConstant,
}

var githubStageTemplates = stageTemplates{
	start:            githubActivityStartTemplateConstant,
	success:          githubActivitySuccessTemplateConstant,
	failure:          githubActivityFailureTemplate,
	executionFailure: githubActivityExecutionFailureTemplate,
}

func (formatter CommandMessageFormatter) describeActivityMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage, activityLabel string, templates stageTemplates) string {
	if len(activityLabel) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectorySuffix := formatter.describeWorkingDirectorySuffix(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, activityLabel, workingDirectorySuffix)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, activityLabel, workingDirectorySuffix)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, activityLabel, workingDirectorySuffix, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(templates.executionFailure, activityLabel, workingDirectorySuffix, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) gitActivityLabel(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return ""
	}
	return gitSubcommandActivityLabels[strings.TrimSpace(command.Details.Arguments[0])]
}

func (formatter CommandMessageFormatter) githubActivityLabel(command ShellCommand) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 {
		return ""
	}
	primaryArgument := strings.TrimSpace(arguments[0])
	secondaryArgument := strings.TrimSpace(arguments[1])
	switch primaryArgument {
	case githubPullRequestSubcommandConstant:
		return githubSubcommandActivityLabels[secondaryArgument]
	case githubRepoSubcommandConstant:
		if secondaryArgument == githubViewSubcommandConstant {
			return githubRepositoryLookupActivityLabelConstant
		}
	}
	return ""
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.renderCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return commandLabel
	}
}

func (formatter CommandMessageFormatter) renderCommandLabel(command ShellCommand) string {
	renderedArguments := shellquote.Join(command.Details.Arguments...)
	if len(renderedArguments) == 0 {
		return string(command.Name)
	}
	return string(command.Name) + argumentRenderingSeparatorConstant + renderedArguments
}

func (formatter CommandMessageFormatter) describeWorkingDirectorySuffix(command ShellCommand) string {
	workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(workingDirectory) == 0 {
		workingDirectory = defaultWorkingDirectoryLabelConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, workingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorMessageSuffixTemplate, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
