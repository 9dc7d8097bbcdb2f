package steps

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sase-run/sase-github/internal/changespec"
	"github.com/sase-run/sase-github/internal/utils"
	"github.com/sase-run/sase-github/internal/workspace"
	"github.com/sase-run/sase-github/vcs"
)

const (
	changeSpecCommandUseConstant              = "changespec"
	changeSpecCommandShortDescriptionConstant = "Create a changespec for the current branch"
	changeSpecCommandLongDescriptionConstant  = "changespec derives the project from the working directory and records a changespec for the named branch when it carries new commits."
	changeSpecNameFlagNameConstant            = "name"
	changeSpecNameFlagDescriptionConstant     = "Branch name of the change."
	promptFlagNameConstant                    = "prompt"
	promptFlagDescriptionConstant             = "Prompt the change was produced from."
	responseFlagNameConstant                  = "response"
	responseFlagDescriptionConstant           = "Agent response summarizing the change."
	changeSpecNameKeyConstant                 = "cl_name"
	defaultBranchKeyConstant                  = "default_branch"
	metaChangeSpecKeyConstant                 = "meta_changespec"
	pullRequestWorkflowNameConstant           = "pr"
	unknownProjectMessageConstant             = "Could not determine project name from workspace"
	noNewCommitsMessageConstant               = "No new commits found"
)

// ChangeSpecCommandBuilder assembles the create-changespec step command used
// by the pr xprompt.
type ChangeSpecCommandBuilder struct {
	LoggerProvider   LoggerProvider
	Executor         vcs.CommandExecutor
	FileSystem       afero.Fs
	HomeDirectory    string
	WorkingDirectory string
}

// Build constructs the changespec command.
func (builder *ChangeSpecCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   changeSpecCommandUseConstant,
		Short: changeSpecCommandShortDescriptionConstant,
		Long:  changeSpecCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(changeSpecNameFlagNameConstant, "", changeSpecNameFlagDescriptionConstant)
	command.Flags().String(promptFlagNameConstant, "", promptFlagDescriptionConstant)
	command.Flags().String(responseFlagNameConstant, "", responseFlagDescriptionConstant)

	if markError := command.MarkFlagRequired(changeSpecNameFlagNameConstant); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *ChangeSpecCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := resolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}
	fileSystem := resolveFileSystem(builder.FileSystem)
	homeDirectory, homeError := resolveHomeDirectory(builder.HomeDirectory)
	if homeError != nil {
		return homeError
	}
	workingDirectory, directoryError := resolveWorkingDirectory(builder.WorkingDirectory)
	if directoryError != nil {
		return directoryError
	}

	dependencies, dependenciesError := buildStepDependencies(logger, executor, fileSystem, homeDirectory, resolveConfigurationFilePath(command, ""))
	if dependenciesError != nil {
		return dependenciesError
	}

	branchNameValue, _ := command.Flags().GetString(changeSpecNameFlagNameConstant)
	branchName := strings.TrimSpace(branchNameValue)
	promptValue, _ := command.Flags().GetString(promptFlagNameConstant)
	responseValue, _ := command.Flags().GetString(responseFlagNameConstant)

	output := utils.NewFlushingWriter(command.OutOrStdout())

	projectName := workspaceProjectName(workingDirectory)
	projectFilePath := workspace.ProjectFilePath(homeDirectory, projectName)
	projectFileExists, existsError := afero.Exists(fileSystem, projectFilePath)
	if existsError != nil {
		return existsError
	}
	if len(projectName) == 0 || !projectFileExists {
		writeContextValue(output, successKeyConstant, falseValueConstant)
		writeContextValue(output, errorKeyConstant, unknownProjectMessageConstant)
		writeContextValue(output, changeSpecNameKeyConstant, "")
		writeContextValue(output, projectFileKeyConstant, "")
		writeContextValue(output, defaultBranchKeyConstant, "")
		return nil
	}

	defaultBranchRef, branchError := dependencies.repository.DefaultBranchRef(command.Context(), workingDirectory)
	if branchError != nil {
		return branchError
	}
	defaultBranch := shortBranchName(defaultBranchRef)

	description := strings.TrimSpace(promptValue)
	if len(description) == 0 {
		description = strings.TrimSpace(responseValue)
	}

	changeSpecName, createError := dependencies.changeSpecs.CreateForWorkflow(command.Context(), changespec.WorkflowRequest{
		ProjectName:     projectName,
		ProjectFilePath: projectFilePath,
		CheckoutTarget:  originRemotePrefixConstant + defaultBranch,
		BranchName:      branchName,
		Prompt:          description,
		WorkflowName:    pullRequestWorkflowNameConstant,
	})
	if createError != nil {
		return createError
	}

	if len(changeSpecName) > 0 {
		writeContextValue(output, successKeyConstant, trueValueConstant)
		writeContextValue(output, changeSpecNameKeyConstant, changeSpecName)
		writeContextValue(output, projectFileKeyConstant, projectFilePath)
		writeContextValue(output, defaultBranchKeyConstant, defaultBranch)
		writeContextValue(output, metaChangeSpecKeyConstant, changeSpecName)
		writeContextValue(output, errorKeyConstant, "")
		return nil
	}

	writeContextValue(output, successKeyConstant, falseValueConstant)
	writeContextValue(output, changeSpecNameKeyConstant, "")
	writeContextValue(output, projectFileKeyConstant, projectFilePath)
	writeContextValue(output, defaultBranchKeyConstant, defaultBranch)
	writeContextValue(output, errorKeyConstant, noNewCommitsMessageConstant)
	return nil
}
