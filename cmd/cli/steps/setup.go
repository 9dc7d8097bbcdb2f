package steps

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sase-run/sase-github/internal/utils"
	"github.com/sase-run/sase-github/internal/utils/flags"
	"github.com/sase-run/sase-github/runner"
	"github.com/sase-run/sase-github/vcs"
)

const (
	setupCommandUseConstant                = "setup"
	setupCommandShortDescriptionConstant   = "Resolve a GitHub reference and claim a workspace"
	setupCommandLongDescriptionConstant    = "setup resolves a #gh reference, claims a numbered workspace clone, and prints the run context for the workflow executor."
	referenceFlagNameConstant              = "ref"
	referenceFlagDescriptionConstant       = "GitHub reference to resolve (owner/project, project shorthand, or changespec name)."
	workspaceNumberFlagNameConstant        = "workspace-num"
	workspaceNumberFlagDescriptionConstant = "Workspace number to claim instead of the first available one."
	releaseFlagNameConstant                = "release"
	releaseFlagDescriptionConstant         = "Release the workspace claim when the run finishes."
	projectNameKeyConstant                 = "project_name"
	projectFileKeyConstant                 = "project_file"
	workspaceDirectoryKeyConstant          = "workspace_dir"
	workspaceNumberKeyConstant             = "workspace_num"
	checkoutTargetKeyConstant              = "checkout_target"
	primaryWorkspaceDirectoryKeyConstant   = "primary_workspace_dir"
	shouldReleaseKeyConstant               = "should_release"
	changeDirectoryKeyConstant             = "_chdir"
	metaWorkspaceKeyConstant               = "meta_workspace"
)

// SetupCommandBuilder assembles the setup step command used by the gh xprompt.
type SetupCommandBuilder struct {
	LoggerProvider    LoggerProvider
	Executor          vcs.CommandExecutor
	FileSystem        afero.Fs
	HomeDirectory     string
	EnvironmentLookup func(key string) string

	releaseFlagValue bool
}

// Build constructs the setup command.
func (builder *SetupCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   setupCommandUseConstant,
		Short: setupCommandShortDescriptionConstant,
		Long:  setupCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(referenceFlagNameConstant, "", referenceFlagDescriptionConstant)
	command.Flags().Int(workspaceNumberFlagNameConstant, 0, workspaceNumberFlagDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), &builder.releaseFlagValue, releaseFlagNameConstant, "", true, releaseFlagDescriptionConstant)

	if markError := command.MarkFlagRequired(referenceFlagNameConstant); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *SetupCommandBuilder) run(command *cobra.Command, _ []string) error {
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

	dependencies, dependenciesError := buildStepDependencies(logger, executor, fileSystem, homeDirectory, resolveConfigurationFilePath(command, ""))
	if dependenciesError != nil {
		return dependenciesError
	}

	referenceValue, _ := command.Flags().GetString(referenceFlagNameConstant)
	reference := strings.TrimSpace(referenceValue)
	workspaceNumber, _ := command.Flags().GetInt(workspaceNumberFlagNameConstant)

	provider := &runner.GitHubProvider{
		Logger:            logger,
		FileSystem:        fileSystem,
		Repository:        dependencies.repository,
		Resolver:          dependencies.resolver,
		Field:             dependencies.field,
		Clones:            dependencies.cloneManager,
		EnvironmentLookup: builder.EnvironmentLookup,
	}

	runContext, allocationError := provider.Allocate(command.Context(), reference, runner.Options{
		WorkspaceNumber: workspaceNumber,
		Release:         builder.releaseFlagValue,
	})
	if allocationError != nil {
		return allocationError
	}

	shouldRelease := falseValueConstant
	if runContext.ShouldRelease {
		shouldRelease = trueValueConstant
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	writeContextValue(output, projectNameKeyConstant, runContext.ProjectName)
	writeContextValue(output, projectFileKeyConstant, runContext.ProjectFile)
	writeContextValue(output, workspaceDirectoryKeyConstant, runContext.WorkspaceDir)
	writeContextValue(output, workspaceNumberKeyConstant, strconv.Itoa(runContext.WorkspaceNumber))
	writeContextValue(output, checkoutTargetKeyConstant, runContext.CheckoutTarget)
	writeContextValue(output, primaryWorkspaceDirectoryKeyConstant, runContext.PrimaryWorkspaceDir)
	writeContextValue(output, shouldReleaseKeyConstant, shouldRelease)
	writeContextValue(output, changeDirectoryKeyConstant, runContext.WorkspaceDir)
	writeContextValue(output, metaWorkspaceKeyConstant, strconv.Itoa(runContext.WorkspaceNumber))

	return nil
}
