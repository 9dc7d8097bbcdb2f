package steps

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/execshell"
	"github.com/sase-run/sase-github/internal/workspace"
)

func runChangeSpecCommand(testInstance *testing.T, builder *ChangeSpecCommandBuilder, arguments []string) (string, error) {
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	output := &bytes.Buffer{}
	command.SetOut(output)
	command.SetErr(output)
	command.SetArgs(arguments)

	executionError := command.Execute()
	return output.String(), executionError
}

func TestChangeSpecCommandCreatesChangeSpec(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	projectFilePath := seedProjectDocument(testInstance, fileSystem)

	executor := &scriptedExecutor{gitCommands: []scriptedCommand{
		{result: execshell.ExecutionResult{StandardOutput: testDefaultBranchRefConstant}},
		{result: execshell.ExecutionResult{StandardOutput: "2"}},
	}}
	builder := &ChangeSpecCommandBuilder{
		Executor:         executor,
		FileSystem:       fileSystem,
		HomeDirectory:    testHomeDirectoryConstant,
		WorkingDirectory: testNumberedWorkspaceConstant,
	}

	output, executionError := runChangeSpecCommand(testInstance, builder, []string{"--name", "fix-login", "--prompt", "Fix the login flow"})
	require.NoError(testInstance, executionError)

	require.Contains(testInstance, output, "success=true\n")
	require.Contains(testInstance, output, "cl_name=widget_fix_login\n")
	require.Contains(testInstance, output, "project_file="+projectFilePath+"\n")
	require.Contains(testInstance, output, "default_branch=main\n")
	require.Contains(testInstance, output, "meta_changespec=widget_fix_login\n")

	changeSpecDocument, loadError := workspace.LoadProjectDocument(fileSystem, "/home/dev/.sase/projects/widget/widget_fix_login.gp")
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "widget_fix_login", changeSpecDocument.Name)
	require.Equal(testInstance, "fix-login", changeSpecDocument.BranchName)
	require.Equal(testInstance, "origin/main", changeSpecDocument.CheckoutTarget)
	require.Equal(testInstance, "Fix the login flow", changeSpecDocument.Description)

	require.Equal(testInstance, []string{"rev-list", "--count", "origin/main..fix-login"}, executor.recordedGit[1].Arguments)
}

func TestChangeSpecCommandReportsNoNewCommits(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	seedProjectDocument(testInstance, fileSystem)

	executor := &scriptedExecutor{gitCommands: []scriptedCommand{
		{result: execshell.ExecutionResult{StandardOutput: testDefaultBranchRefConstant}},
		{result: execshell.ExecutionResult{StandardOutput: "0"}},
	}}
	builder := &ChangeSpecCommandBuilder{
		Executor:         executor,
		FileSystem:       fileSystem,
		HomeDirectory:    testHomeDirectoryConstant,
		WorkingDirectory: testNumberedWorkspaceConstant,
	}

	output, executionError := runChangeSpecCommand(testInstance, builder, []string{"--name", "fix-login"})
	require.NoError(testInstance, executionError)

	require.Contains(testInstance, output, "success=false\n")
	require.Contains(testInstance, output, "cl_name=\n")
	require.Contains(testInstance, output, "default_branch=main\n")
	require.Contains(testInstance, output, "error=No new commits found\n")
}

func TestChangeSpecCommandRejectsUnknownWorkspace(testInstance *testing.T) {
	builder := &ChangeSpecCommandBuilder{
		Executor:         &scriptedExecutor{},
		FileSystem:       afero.NewMemMapFs(),
		HomeDirectory:    testHomeDirectoryConstant,
		WorkingDirectory: "/srv/elsewhere/checkout",
	}

	output, executionError := runChangeSpecCommand(testInstance, builder, []string{"--name", "fix-login"})
	require.NoError(testInstance, executionError)

	require.Contains(testInstance, output, "success=false\n")
	require.Contains(testInstance, output, "error=Could not determine project name from workspace\n")
	require.Contains(testInstance, output, "project_file=\n")
}
