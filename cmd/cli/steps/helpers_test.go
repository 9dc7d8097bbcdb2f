package steps

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/execshell"
	"github.com/sase-run/sase-github/internal/workspace"
)

const (
	testHomeDirectoryConstant      = "/home/dev"
	testProjectNameConstant        = "widget"
	testPrimaryWorkspaceConstant   = "/home/dev/projects/github/acme/widget/"
	testNumberedWorkspaceConstant  = "/home/dev/projects/github/acme/widget__1"
	testDefaultBranchRefConstant   = "origin/main"
	testPullRequestPayloadConstant = `{"number":42,"url":"https://github.com/acme/widget/pull/42"}`
)

type scriptedCommand struct {
	result execshell.ExecutionResult
	err    error
}

type scriptedExecutor struct {
	gitCommands    []scriptedCommand
	githubCommands []scriptedCommand
	recordedGit    []execshell.CommandDetails
	recordedGitHub []execshell.CommandDetails
}

func takeScripted(queue []scriptedCommand, index int) scriptedCommand {
	if index < len(queue) {
		return queue[index]
	}
	return scriptedCommand{}
}

func (executor *scriptedExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedGit = append(executor.recordedGit, details)
	scripted := takeScripted(executor.gitCommands, len(executor.recordedGit)-1)
	return scripted.result, scripted.err
}

func (executor *scriptedExecutor) ExecuteGitHubCLI(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedGitHub = append(executor.recordedGitHub, details)
	scripted := takeScripted(executor.githubCommands, len(executor.recordedGitHub)-1)
	return scripted.result, scripted.err
}

func seedProjectDocument(testInstance *testing.T, fileSystem afero.Fs) string {
	projectFilePath := workspace.ProjectFilePath(testHomeDirectoryConstant, testProjectNameConstant)
	saveError := workspace.SaveProjectDocument(fileSystem, projectFilePath, workspace.ProjectDocument{
		Name:         testProjectNameConstant,
		WorkspaceDir: testPrimaryWorkspaceConstant,
	})
	require.NoError(testInstance, saveError)
	return projectFilePath
}

func TestWorkspaceProjectName(testInstance *testing.T) {
	testCases := []struct {
		name                string
		workspaceDirectory  string
		expectedProjectName string
	}{
		{name: "primary_workspace", workspaceDirectory: "/home/dev/projects/github/acme/widget", expectedProjectName: "widget"},
		{name: "numbered_clone", workspaceDirectory: "/home/dev/projects/github/acme/widget__2", expectedProjectName: "widget"},
		{name: "trailing_slash", workspaceDirectory: "/home/dev/projects/github/acme/widget__2/", expectedProjectName: "widget"},
		{name: "underscores_without_number", workspaceDirectory: "/srv/data__set", expectedProjectName: "data__set"},
		{name: "underscored_name", workspaceDirectory: "/srv/data_set", expectedProjectName: "data_set"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedProjectName, workspaceProjectName(testCase.workspaceDirectory))
		})
	}
}

func TestShortBranchName(testInstance *testing.T) {
	require.Equal(testInstance, "main", shortBranchName("origin/main"))
	require.Equal(testInstance, "release", shortBranchName("refs/remotes/origin/release"))
	require.Equal(testInstance, "trunk", shortBranchName("trunk"))
}

func TestResolveConfigurationFilePath(testInstance *testing.T) {
	command := &cobra.Command{Use: "configured"}
	command.SetContext(commandContextAccessor.WithConfigurationFilePath(context.Background(), "/etc/sase/config.yaml"))

	require.Equal(testInstance, "/etc/sase/config.yaml", resolveConfigurationFilePath(command, ""))
	require.Equal(testInstance, "/home/dev/custom.yaml", resolveConfigurationFilePath(command, "/home/dev/custom.yaml"))

	bareCommand := &cobra.Command{Use: "bare"}
	bareCommand.SetContext(context.Background())
	require.Equal(testInstance, "", resolveConfigurationFilePath(bareCommand, ""))
}
