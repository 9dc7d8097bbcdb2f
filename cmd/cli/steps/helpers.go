package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sase-run/sase-github/internal/changespec"
	"github.com/sase-run/sase-github/internal/execshell"
	"github.com/sase-run/sase-github/internal/githubcli"
	"github.com/sase-run/sase-github/internal/gitrepo"
	"github.com/sase-run/sase-github/internal/saseconfig"
	"github.com/sase-run/sase-github/internal/utils"
	"github.com/sase-run/sase-github/internal/workspace"
	"github.com/sase-run/sase-github/vcs"
)

const (
	contextLineTemplateConstant         = "%s=%s\n"
	branchSeparatorConstant             = "/"
	numberedCloneSeparatorConstant      = "__"
	originRemotePrefixConstant          = "origin/"
	trueValueConstant                   = "true"
	falseValueConstant                  = "false"
	successKeyConstant                  = "success"
	errorKeyConstant                    = "error"
	configurationLoadWarningConstant    = "Failed to load sase configuration"
	workingDirectoryErrorTemplateConst  = "resolve working directory: %w"
	homeDirectoryErrorTemplateConstant  = "resolve home directory: %w"
	executorCreationErrorTemplateConst  = "construct shell executor: %w"
)

// LoggerProvider supplies the logger configured by the root command.
type LoggerProvider func() *zap.Logger

var commandContextAccessor = utils.NewCommandContextAccessor()

// resolveConfigurationFilePath prefers an explicitly configured path and falls
// back to the one the root command recorded in the execution context.
func resolveConfigurationFilePath(command *cobra.Command, configuredPath string) string {
	if len(configuredPath) > 0 {
		return configuredPath
	}
	contextPath, pathAvailable := commandContextAccessor.ConfigurationFilePath(command.Context())
	if !pathAvailable {
		return ""
	}
	return contextPath
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveExecutor(executor vcs.CommandExecutor, logger *zap.Logger) (vcs.CommandExecutor, error) {
	if executor != nil {
		return executor, nil
	}
	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, fmt.Errorf(executorCreationErrorTemplateConst, executorError)
	}
	return shellExecutor, nil
}

func resolveFileSystem(fileSystem afero.Fs) afero.Fs {
	if fileSystem == nil {
		return afero.NewOsFs()
	}
	return fileSystem
}

func resolveHomeDirectory(homeDirectory string) (string, error) {
	if len(homeDirectory) > 0 {
		return homeDirectory, nil
	}
	resolvedHome, homeError := os.UserHomeDir()
	if homeError != nil {
		return "", fmt.Errorf(homeDirectoryErrorTemplateConstant, homeError)
	}
	return resolvedHome, nil
}

func resolveWorkingDirectory(workingDirectory string) (string, error) {
	if len(workingDirectory) > 0 {
		return workingDirectory, nil
	}
	resolvedDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		return "", fmt.Errorf(workingDirectoryErrorTemplateConst, directoryError)
	}
	return resolvedDirectory, nil
}

func writeContextValue(output io.Writer, key string, value string) {
	fmt.Fprintf(output, contextLineTemplateConstant, key, value)
}

// shortBranchName reduces a remote tracking reference like origin/main to its
// final path segment.
func shortBranchName(branchReference string) string {
	segments := strings.Split(branchReference, branchSeparatorConstant)
	return segments[len(segments)-1]
}

// workspaceProjectName derives the project name from a workspace directory,
// stripping the numbered-clone suffix when present.
func workspaceProjectName(workspaceDirectory string) string {
	baseName := filepath.Base(filepath.Clean(workspaceDirectory))
	separatorIndex := strings.LastIndex(baseName, numberedCloneSeparatorConstant)
	if separatorIndex <= 0 {
		return baseName
	}
	suffix := baseName[separatorIndex+len(numberedCloneSeparatorConstant):]
	if len(suffix) == 0 {
		return baseName
	}
	for _, suffixRune := range suffix {
		if suffixRune < '0' || suffixRune > '9' {
			return baseName
		}
	}
	return baseName[:separatorIndex]
}

// stepDependencies bundles the collaborators the workspace-facing step
// commands share.
type stepDependencies struct {
	logger        *zap.Logger
	fileSystem    afero.Fs
	homeDirectory string
	repository    *gitrepo.RepositoryManager
	field         *workspace.Field
	cloneManager  *workspace.CloneManager
	changeSpecs   *changespec.Store
	resolver      *workspace.Resolver
}

func buildStepDependencies(logger *zap.Logger, executor vcs.CommandExecutor, fileSystem afero.Fs, homeDirectory string, configurationFilePath string) (stepDependencies, error) {
	repository, repositoryError := gitrepo.NewRepositoryManager(executor)
	if repositoryError != nil {
		return stepDependencies{}, repositoryError
	}

	githubClient, clientError := githubcli.NewClient(executor)
	if clientError != nil {
		return stepDependencies{}, clientError
	}

	field, fieldError := workspace.NewField(fileSystem, nil)
	if fieldError != nil {
		return stepDependencies{}, fieldError
	}

	cloneManager, cloneManagerError := workspace.NewCloneManager(fileSystem, repository)
	if cloneManagerError != nil {
		return stepDependencies{}, cloneManagerError
	}

	changeSpecStore, storeError := changespec.NewStore(fileSystem, homeDirectory, repository)
	if storeError != nil {
		return stepDependencies{}, storeError
	}

	configurationLoader := saseconfig.NewLoader(homeDirectory)
	usernameProvider := func() string {
		configuredUsername, usernameError := configurationLoader.GitHubUsername(configurationFilePath)
		if usernameError != nil {
			logger.Warn(configurationLoadWarningConstant, zap.Error(usernameError))
			return ""
		}
		return configuredUsername
	}

	resolver := &workspace.Resolver{
		FileSystem:             fileSystem,
		HomeDirectory:          homeDirectory,
		Repository:             repository,
		GitHubUsernameProvider: usernameProvider,
		ChangeSpecs: func(name string) (workspace.ChangeSpecMatch, bool, error) {
			spec, found, findError := changeSpecStore.FindByName(name)
			if findError != nil || !found {
				return workspace.ChangeSpecMatch{}, false, findError
			}
			return workspace.ChangeSpecMatch{
				FilePath:        spec.FilePath,
				ProjectBasename: spec.ProjectBasename,
			}, true, nil
		},
		DefaultBranchFallback: func(executionContext context.Context, repository string) (string, error) {
			metadata, metadataError := githubClient.ResolveRepoMetadata(executionContext, repository)
			if metadataError != nil {
				return "", metadataError
			}
			return metadata.DefaultBranch, nil
		},
	}

	return stepDependencies{
		logger:        logger,
		fileSystem:    fileSystem,
		homeDirectory: homeDirectory,
		repository:    repository,
		field:         field,
		cloneManager:  cloneManager,
		changeSpecs:   changeSpecStore,
		resolver:      resolver,
	}, nil
}
