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
	mailCommandUseConstant              = "mail"
	mailCommandShortDescriptionConstant = "Push a revision and ensure a pull request exists"
	mailCommandLongDescriptionConstant  = "mail pushes the revision to origin and creates a pull request from the commit metadata when the branch has none yet."
	revisionFlagNameConstant            = "revision"
	revisionFlagDescriptionConstant     = "Revision to push for review."
	pullRequestURLKeyConstant           = "pr_url"
)

// MailCommandBuilder assembles the mail step command used by the pr xprompt.
type MailCommandBuilder struct {
	LoggerProvider        LoggerProvider
	Executor              vcs.CommandExecutor
	FileSystem            afero.Fs
	HomeDirectory         string
	WorkingDirectory      string
	ConfigurationFilePath string
}

// Build constructs the mail command.
func (builder *MailCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   mailCommandUseConstant,
		Short: mailCommandShortDescriptionConstant,
		Long:  mailCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(revisionFlagNameConstant, "", revisionFlagDescriptionConstant)

	if markError := command.MarkFlagRequired(revisionFlagNameConstant); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *MailCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := resolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}
	workingDirectory, directoryError := resolveWorkingDirectory(builder.WorkingDirectory)
	if directoryError != nil {
		return directoryError
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

	revisionValue, _ := command.Flags().GetString(revisionFlagNameConstant)
	revision := strings.TrimSpace(revisionValue)

	if mailError := provider.Mail(command.Context(), revision, workingDirectory); mailError != nil {
		return mailError
	}

	pullRequestURL, urlError := provider.ChangeURL(command.Context(), workingDirectory)
	if urlError != nil {
		return urlError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	writeContextValue(output, successKeyConstant, trueValueConstant)
	writeContextValue(output, pullRequestURLKeyConstant, pullRequestURL)
	return nil
}
