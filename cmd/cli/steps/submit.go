package steps

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sase-run/sase-github/internal/utils"
	"github.com/sase-run/sase-github/vcs"
	"github.com/sase-run/sase-github/vcs/github"
)

const (
	submitCommandUseConstant              = "submit"
	submitCommandShortDescriptionConstant = "Merge the pull request of a changespec"
	submitCommandLongDescriptionConstant  = "submit merges the pull request recorded for a changespec into the default branch and deletes the remote branch."
	submitNameFlagNameConstant            = "name"
	submitNameFlagDescriptionConstant     = "Changespec name to submit."
)

// SubmitCommandBuilder assembles the submit step command.
type SubmitCommandBuilder struct {
	LoggerProvider        LoggerProvider
	Executor              vcs.CommandExecutor
	FileSystem            afero.Fs
	HomeDirectory         string
	ConfigurationFilePath string
}

// Build constructs the submit command.
func (builder *SubmitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   submitCommandUseConstant,
		Short: submitCommandShortDescriptionConstant,
		Long:  submitCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(submitNameFlagNameConstant, "", submitNameFlagDescriptionConstant)

	if markError := command.MarkFlagRequired(submitNameFlagNameConstant); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *SubmitCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := resolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}

	provider, providerError := vcs.New(github.ProviderName, vcs.Dependencies{
		Logger:                logger,
		Executor:              executor,
		FileSystem:            builder.FileSystem,
		HomeDirectory:         builder.HomeDirectory,
		ConfigurationFilePath: resolveConfigurationFilePath(command, builder.ConfigurationFilePath),
	})
	if providerError != nil {
		return providerError
	}

	nameValue, _ := command.Flags().GetString(submitNameFlagNameConstant)
	changeSpecName := strings.TrimSpace(nameValue)

	if submitError := provider.Submit(command.Context(), vcs.SubmitRequest{ChangeSpecName: changeSpecName}); submitError != nil {
		return submitError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	writeContextValue(output, successKeyConstant, trueValueConstant)
	writeContextValue(output, changeSpecNameKeyConstant, changeSpecName)
	return nil
}
