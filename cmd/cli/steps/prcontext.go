package steps

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sase-run/sase-github/internal/utils"
	"github.com/sase-run/sase-github/internal/workspace"
	"github.com/sase-run/sase-github/vcs"
)

const (
	pullRequestContextCommandUseConstant       = "pr-context"
	pullRequestContextShortDescriptionConstant = "Collect diff and commit context for a changespec"
	pullRequestContextLongDescriptionConstant  = "pr-context locates a changespec, diffs its branch against the default branch, and prints the context a pull-request description is generated from."
	contextNameFlagNameConstant                = "name"
	contextNameFlagDescriptionConstant         = "Changespec name to describe."
	descriptionKeyConstant                     = "description"
	diffKeyConstant                            = "diff"
	diffFileKeyConstant                        = "diff_file"
	commitsKeyConstant                         = "commits"
	branchNameKeyConstant                      = "branch_name"
	changeSpecNotFoundTemplateConstant         = "ChangeSpec '%s' not found"
	workspaceDirNotSetMessageConstant          = "WORKSPACE_DIR is not set for this project"
	missingDescriptionFallbackConstant         = "No description"
	diffFileNamePatternConstant                = "pr_desc_*.diff"
	symmetricDifferenceOperatorConstant        = "..."
	diffSizeLimitConstant                      = 5000
	commitSubjectSeparatorConstant             = "\n"
)

// PullRequestContextCommandBuilder assembles the get-context step command
// used by the new_pr_desc xprompt.
type PullRequestContextCommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       vcs.CommandExecutor
	FileSystem     afero.Fs
	HomeDirectory  string
	TempDirectory  string
}

// Build constructs the pr-context command.
func (builder *PullRequestContextCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   pullRequestContextCommandUseConstant,
		Short: pullRequestContextShortDescriptionConstant,
		Long:  pullRequestContextLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(contextNameFlagNameConstant, "", contextNameFlagDescriptionConstant)

	if markError := command.MarkFlagRequired(contextNameFlagNameConstant); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *PullRequestContextCommandBuilder) run(command *cobra.Command, _ []string) error {
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

	nameValue, _ := command.Flags().GetString(contextNameFlagNameConstant)
	changeSpecName := strings.TrimSpace(nameValue)

	output := utils.NewFlushingWriter(command.OutOrStdout())

	spec, found, findError := dependencies.changeSpecs.FindByName(changeSpecName)
	if findError != nil {
		return findError
	}
	if !found {
		writeContextValue(output, errorKeyConstant, fmt.Sprintf(changeSpecNotFoundTemplateConstant, changeSpecName))
		writeContextValue(output, descriptionKeyConstant, "")
		writeContextValue(output, diffKeyConstant, "")
		writeContextValue(output, workspaceDirectoryKeyConstant, "")
		writeContextValue(output, defaultBranchKeyConstant, "")
		writeContextValue(output, branchNameKeyConstant, "")
		return nil
	}

	workspaceDirectory, parseError := workspace.ParseWorkspaceDir(fileSystem, spec.FilePath)
	if parseError != nil {
		return parseError
	}
	if len(workspaceDirectory) == 0 {
		writeContextValue(output, errorKeyConstant, workspaceDirNotSetMessageConstant)
		writeContextValue(output, descriptionKeyConstant, "")
		writeContextValue(output, diffKeyConstant, "")
		writeContextValue(output, workspaceDirectoryKeyConstant, "")
		writeContextValue(output, defaultBranchKeyConstant, "")
		writeContextValue(output, branchNameKeyConstant, changeSpecName)
		return nil
	}

	defaultBranchRef, branchError := dependencies.repository.DefaultBranchRef(command.Context(), workspaceDirectory)
	if branchError != nil {
		return branchError
	}
	defaultBranch := shortBranchName(defaultBranchRef)

	description := spec.Description
	if len(description) == 0 {
		description = missingDescriptionFallbackConstant
	}

	branchName := spec.BranchName
	if len(branchName) == 0 {
		branchName = changeSpecName
	}

	// Diff and log failures are tolerated; the description prompt degrades to
	// whatever context could be collected.
	diffOutput, diffError := dependencies.repository.Diff(
		command.Context(),
		workspaceDirectory,
		originRemotePrefixConstant+defaultBranch+symmetricDifferenceOperatorConstant+branchName,
	)
	if diffError != nil {
		diffOutput = ""
	}
	if len(diffOutput) > diffSizeLimitConstant {
		truncationLimit := diffSizeLimitConstant
		for truncationLimit > 0 && !utf8.RuneStart(diffOutput[truncationLimit]) {
			truncationLimit--
		}
		diffOutput = diffOutput[:truncationLimit]
	}

	commitSubjects, commitsError := dependencies.repository.CommitSubjects(
		command.Context(),
		workspaceDirectory,
		originRemotePrefixConstant+defaultBranch,
		branchName,
	)
	commits := ""
	if commitsError == nil {
		commits = strings.Join(commitSubjects, commitSubjectSeparatorConstant)
	}

	diffFile, tempFileError := afero.TempFile(fileSystem, builder.TempDirectory, diffFileNamePatternConstant)
	if tempFileError != nil {
		return tempFileError
	}
	if _, writeError := diffFile.WriteString(diffOutput); writeError != nil {
		diffFile.Close()
		return writeError
	}
	if closeError := diffFile.Close(); closeError != nil {
		return closeError
	}

	writeContextValue(output, errorKeyConstant, "")
	writeContextValue(output, descriptionKeyConstant, description)
	writeContextValue(output, diffFileKeyConstant, diffFile.Name())
	writeContextValue(output, commitsKeyConstant, commits)
	writeContextValue(output, workspaceDirectoryKeyConstant, workspaceDirectory)
	writeContextValue(output, defaultBranchKeyConstant, defaultBranch)
	writeContextValue(output, branchNameKeyConstant, branchName)
	writeContextValue(output, changeDirectoryKeyConstant, workspaceDirectory)
	return nil
}
