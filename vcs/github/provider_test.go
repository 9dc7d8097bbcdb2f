package github_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/changespec"
	"github.com/sase-run/sase-github/internal/execshell"
	"github.com/sase-run/sase-github/internal/workspace"
	"github.com/sase-run/sase-github/vcs"
	"github.com/sase-run/sase-github/vcs/github"
)

const (
	testWorkingDirectoryConstant   = "/workspace/demo"
	testHomeDirectoryConstant      = "/home/dev"
	testPullRequestPayloadConstant = `{"number":42,"url":"https://github.com/acme/widget/pull/42"}`
	testChangeSpecNameConstant     = "widget_fix_login"
	testPrimaryWorkspaceConstant   = "/home/dev/projects/github/acme/widget/"
	testNumberedWorkspaceConstant  = "/home/dev/projects/github/acme/widget__1"
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

func (executor *scriptedExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedGit = append(executor.recordedGit, details)
	scripted := takeScripted(executor.gitCommands, len(executor.recordedGit)-1)
	return scripted.result, scripted.err
}

func (executor *scriptedExecutor) ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedGitHub = append(executor.recordedGitHub, details)
	scripted := takeScripted(executor.githubCommands, len(executor.recordedGitHub)-1)
	return scripted.result, scripted.err
}

func commandFailure(commandName execshell.CommandName, exitCode int, standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: commandName},
		Result:  execshell.ExecutionResult{ExitCode: exitCode, StandardError: standardError},
	}
}

func newTestProvider(testInstance *testing.T, executor *scriptedExecutor, fileSystem afero.Fs) *github.Provider {
	if fileSystem == nil {
		fileSystem = afero.NewMemMapFs()
	}
	provider, creationError := github.New(vcs.Dependencies{
		Executor:      executor,
		FileSystem:    fileSystem,
		HomeDirectory: testHomeDirectoryConstant,
	})
	require.NoError(testInstance, creationError)
	return provider
}

func TestProviderIsRegistered(testInstance *testing.T) {
	require.Contains(testInstance, vcs.ProviderNames(), github.ProviderName)

	provider, creationError := vcs.New(github.ProviderName, vcs.Dependencies{
		Executor:      &scriptedExecutor{},
		FileSystem:    afero.NewMemMapFs(),
		HomeDirectory: testHomeDirectoryConstant,
	})
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, github.ProviderName, provider.Name())
}

func TestNewRequiresExecutor(testInstance *testing.T) {
	_, creationError := github.New(vcs.Dependencies{})
	require.Error(testInstance, creationError)
}

func TestChangeURL(testInstance *testing.T) {
	testCases := []struct {
		name        string
		command     scriptedCommand
		expectedURL string
	}{
		{
			name:        "existing_pull_request",
			command:     scriptedCommand{result: execshell.ExecutionResult{StandardOutput: testPullRequestPayloadConstant}},
			expectedURL: "https://github.com/acme/widget/pull/42",
		},
		{
			name:        "no_pull_request",
			command:     scriptedCommand{err: commandFailure(execshell.CommandGitHub, 1, "no pull requests found")},
			expectedURL: "",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedExecutor{githubCommands: []scriptedCommand{testCase.command}}
			provider := newTestProvider(testInstance, executor, nil)

			changeURL, urlError := provider.ChangeURL(context.Background(), testWorkingDirectoryConstant)
			require.NoError(testInstance, urlError)
			require.Equal(testInstance, testCase.expectedURL, changeURL)
		})
	}
}

func TestChangeNumber(testInstance *testing.T) {
	executor := &scriptedExecutor{githubCommands: []scriptedCommand{
		{result: execshell.ExecutionResult{StandardOutput: testPullRequestPayloadConstant}},
	}}
	provider := newTestProvider(testInstance, executor, nil)

	changeNumber, numberError := provider.ChangeNumber(context.Background(), testWorkingDirectoryConstant)
	require.NoError(testInstance, numberError)
	require.Equal(testInstance, "42", changeNumber)
}

func TestMail(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		gitCommands          []scriptedCommand
		githubCommands       []scriptedCommand
		expectedGitHubCalls  int
		expectedErrorMessage string
	}{
		{
			name:        "existing_pull_request_skips_creation",
			gitCommands: []scriptedCommand{{}},
			githubCommands: []scriptedCommand{
				{result: execshell.ExecutionResult{StandardOutput: testPullRequestPayloadConstant}},
			},
			expectedGitHubCalls: 1,
		},
		{
			name:        "missing_pull_request_creates_one",
			gitCommands: []scriptedCommand{{}},
			githubCommands: []scriptedCommand{
				{err: commandFailure(execshell.CommandGitHub, 1, "no pull requests found")},
				{},
			},
			expectedGitHubCalls: 2,
		},
		{
			name: "push_failure_surfaces_stderr",
			gitCommands: []scriptedCommand{
				{err: commandFailure(execshell.CommandGit, 1, "remote rejected")},
			},
			expectedErrorMessage: "remote rejected",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedExecutor{gitCommands: testCase.gitCommands, githubCommands: testCase.githubCommands}
			provider := newTestProvider(testInstance, executor, nil)

			mailError := provider.Mail(context.Background(), "fix-login", testWorkingDirectoryConstant)
			if len(testCase.expectedErrorMessage) > 0 {
				require.Error(testInstance, mailError)
				require.Contains(testInstance, mailError.Error(), testCase.expectedErrorMessage)
				return
			}

			require.NoError(testInstance, mailError)
			require.Equal(testInstance, []string{"push", "-u", "origin", "fix-login"}, executor.recordedGit[0].Arguments)
			require.Len(testInstance, executor.recordedGitHub, testCase.expectedGitHubCalls)
			if testCase.expectedGitHubCalls == 2 {
				require.Equal(testInstance, []string{"pr", "create", "--fill"}, executor.recordedGitHub[1].Arguments)
			}
		})
	}
}

func TestMailResolvesCurrentBranchWhenRevisionEmpty(testInstance *testing.T) {
	executor := &scriptedExecutor{
		gitCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: "fix-login\n"}},
			{},
		},
		githubCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: testPullRequestPayloadConstant}},
		},
	}
	provider := newTestProvider(testInstance, executor, nil)

	mailError := provider.Mail(context.Background(), "", testWorkingDirectoryConstant)
	require.NoError(testInstance, mailError)

	require.Equal(testInstance, []string{"rev-parse", "--abbrev-ref", "HEAD"}, executor.recordedGit[0].Arguments)
	require.Equal(testInstance, []string{"push", "-u", "origin", "fix-login"}, executor.recordedGit[1].Arguments)
}

func seedSubmitFixture(testInstance *testing.T, fileSystem afero.Fs, children []workspace.ProjectDocument) string {
	projectFilePath := workspace.ProjectFilePath(testHomeDirectoryConstant, "widget")
	require.NoError(testInstance, workspace.SaveProjectDocument(fileSystem, projectFilePath, workspace.ProjectDocument{
		Name:         "widget",
		WorkspaceDir: testPrimaryWorkspaceConstant,
	}))
	require.NoError(testInstance, fileSystem.MkdirAll(testPrimaryWorkspaceConstant+".git", 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(testNumberedWorkspaceConstant, 0o755))

	changeSpecPath := "/home/dev/.sase/projects/widget/" + testChangeSpecNameConstant + ".gp"
	require.NoError(testInstance, workspace.SaveProjectDocument(fileSystem, changeSpecPath, workspace.ProjectDocument{
		Name:         testChangeSpecNameConstant,
		WorkspaceDir: testPrimaryWorkspaceConstant,
		Status:       "Active",
		BranchName:   "fix-login",
	}))

	for _, childDocument := range children {
		childPath := "/home/dev/.sase/projects/widget/" + childDocument.Name + ".gp"
		require.NoError(testInstance, workspace.SaveProjectDocument(fileSystem, childPath, childDocument))
	}
	return changeSpecPath
}

func TestSubmitMergesPullRequest(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	changeSpecPath := seedSubmitFixture(testInstance, fileSystem, nil)
	testInstance.Setenv("SASE_GITHUB_USERNAME", "acme-dev")

	executor := &scriptedExecutor{
		gitCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: "git@github.com:acme/widget.git\n"}},
			{},
		},
		githubCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: testPullRequestPayloadConstant}},
			{},
		},
	}
	provider := newTestProvider(testInstance, executor, fileSystem)

	submitError := provider.Submit(context.Background(), vcs.SubmitRequest{
		ChangeSpecName:  testChangeSpecNameConstant,
		ProjectBasename: "widget",
	})
	require.NoError(testInstance, submitError)

	require.Equal(testInstance, []string{"checkout", "fix-login"}, executor.recordedGit[1].Arguments)
	require.Equal(testInstance, testNumberedWorkspaceConstant, executor.recordedGit[1].WorkingDirectory)
	require.Equal(testInstance, []string{"pr", "merge", "--merge", "--delete-branch"}, executor.recordedGitHub[1].Arguments)

	document, loadError := workspace.LoadProjectDocument(fileSystem, changeSpecPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, changespec.StatusSubmitted, document.Status)
}

func TestSubmitRequiresPullRequest(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	seedSubmitFixture(testInstance, fileSystem, nil)
	testInstance.Setenv("SASE_GITHUB_USERNAME", "acme-dev")

	executor := &scriptedExecutor{
		gitCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: "git@github.com:acme/widget.git\n"}},
			{},
		},
		githubCommands: []scriptedCommand{
			{err: commandFailure(execshell.CommandGitHub, 1, "no pull requests found")},
		},
	}
	provider := newTestProvider(testInstance, executor, fileSystem)

	submitError := provider.Submit(context.Background(), vcs.SubmitRequest{ChangeSpecName: testChangeSpecNameConstant})
	require.ErrorIs(testInstance, submitError, github.ErrMissingPullRequest)
}

func TestSubmitRequiresConfiguredUsername(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	seedSubmitFixture(testInstance, fileSystem, nil)

	executor := &scriptedExecutor{
		gitCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: "git@github.com:acme/widget.git\n"}},
			{},
		},
		githubCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: testPullRequestPayloadConstant}},
		},
	}
	provider := newTestProvider(testInstance, executor, fileSystem)

	submitError := provider.Submit(context.Background(), vcs.SubmitRequest{ChangeSpecName: testChangeSpecNameConstant})
	require.ErrorIs(testInstance, submitError, github.ErrUsernameNotConfigured)
}

func TestSubmitRefusesActiveChildren(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	seedSubmitFixture(testInstance, fileSystem, []workspace.ProjectDocument{
		{
			Name:         "widget_follow_up",
			WorkspaceDir: testPrimaryWorkspaceConstant,
			Status:       "Active",
			Parent:       testChangeSpecNameConstant,
		},
	})

	executor := &scriptedExecutor{
		gitCommands: []scriptedCommand{
			{result: execshell.ExecutionResult{StandardOutput: "git@github.com:acme/widget.git\n"}},
		},
	}
	provider := newTestProvider(testInstance, executor, fileSystem)

	submitError := provider.Submit(context.Background(), vcs.SubmitRequest{ChangeSpecName: testChangeSpecNameConstant})
	require.Error(testInstance, submitError)
	require.Contains(testInstance, submitError.Error(), "cannot submit")
}

func TestSubmitRejectsProjectMismatch(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	seedSubmitFixture(testInstance, fileSystem, nil)
	provider := newTestProvider(testInstance, &scriptedExecutor{}, fileSystem)

	submitError := provider.Submit(context.Background(), vcs.SubmitRequest{
		ChangeSpecName:  testChangeSpecNameConstant,
		ProjectBasename: "gadget",
	})
	require.Error(testInstance, submitError)
	require.Contains(testInstance, submitError.Error(), `belongs to project "widget", not "gadget"`)
}

func TestSubmitUnknownChangeSpec(testInstance *testing.T) {
	provider := newTestProvider(testInstance, &scriptedExecutor{}, nil)

	submitError := provider.Submit(context.Background(), vcs.SubmitRequest{ChangeSpecName: "missing"})
	require.Error(testInstance, submitError)
	require.Contains(testInstance, submitError.Error(), `changespec "missing" not found`)
}
