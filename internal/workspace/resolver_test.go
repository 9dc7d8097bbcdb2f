package workspace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/workspace"
)

const (
	testResolverHomeConstant          = "/home/dev"
	testResolverDefaultBranchConstant = "origin/main"
	testResolverPrimaryDirConstant    = "/home/dev/projects/github/acme/widget/"
)

func newTestResolver(fileSystem afero.Fs, repository workspace.RepositoryOperations) *workspace.Resolver {
	return &workspace.Resolver{
		FileSystem:    fileSystem,
		HomeDirectory: testResolverHomeConstant,
		Repository:    repository,
	}
}

func TestResolveRepoPathClonesMissingWorkspace(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	repository := &stubRepositoryOperations{defaultBranch: testResolverDefaultBranchConstant}
	resolver := newTestResolver(fileSystem, repository)
	resolver.GitHubUsernameProvider = func() string { return "acme" }

	resolution, resolveError := resolver.Resolve(context.Background(), "acme/widget")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "widget", resolution.ProjectName)
	require.Equal(testInstance, testResolverPrimaryDirConstant, resolution.PrimaryWorkspaceDir)
	require.Equal(testInstance, testResolverDefaultBranchConstant, resolution.CheckoutTarget)
	require.Equal(testInstance, []string{"git@github.com:acme/widget.git"}, repository.clonedURLs)

	recordedWorkspaceDir, parseError := workspace.ParseWorkspaceDir(fileSystem, resolution.ProjectFile)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, testResolverPrimaryDirConstant, recordedWorkspaceDir)
}

func TestResolveRepoPathSkipsCloneWhenWorkspaceExists(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll("/home/dev/projects/github/acme/widget", 0o755))
	repository := &stubRepositoryOperations{defaultBranch: testResolverDefaultBranchConstant}
	resolver := newTestResolver(fileSystem, repository)

	resolution, resolveError := resolver.Resolve(context.Background(), "acme/widget")
	require.NoError(testInstance, resolveError)
	require.Empty(testInstance, repository.clonedURLs)
	require.Equal(testInstance, testResolverDefaultBranchConstant, resolution.CheckoutTarget)
}

func TestResolveRepoPathUsesHTTPSForForeignOwner(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	repository := &stubRepositoryOperations{defaultBranch: testResolverDefaultBranchConstant}
	resolver := newTestResolver(fileSystem, repository)
	resolver.GitHubUsernameProvider = func() string { return "someone-else" }

	_, resolveError := resolver.Resolve(context.Background(), "acme/widget")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, []string{"https://github.com/acme/widget.git"}, repository.clonedURLs)
}

func TestResolveRepoPathFallsBackToHostedDefaultBranch(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll("/home/dev/projects/github/acme/widget", 0o755))
	repository := &stubRepositoryOperations{defaultBranchError: errors.New("no origin/HEAD recorded")}
	resolver := newTestResolver(fileSystem, repository)

	requestedRepositories := []string{}
	resolver.DefaultBranchFallback = func(_ context.Context, repositoryIdentifier string) (string, error) {
		requestedRepositories = append(requestedRepositories, repositoryIdentifier)
		return "main", nil
	}

	resolution, resolveError := resolver.Resolve(context.Background(), "acme/widget")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, testResolverDefaultBranchConstant, resolution.CheckoutTarget)
	require.Equal(testInstance, []string{"acme/widget"}, requestedRepositories)
}

func TestResolveRepoPathDetectsWorkspaceConflict(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	projectFilePath := workspace.ProjectFilePath(testResolverHomeConstant, "widget")
	require.NoError(testInstance, workspace.SetWorkspaceDir(fileSystem, projectFilePath, "/home/dev/somewhere/else/"))
	resolver := newTestResolver(fileSystem, &stubRepositoryOperations{})

	_, resolveError := resolver.Resolve(context.Background(), "acme/widget")
	require.Error(testInstance, resolveError)
	require.Contains(testInstance, resolveError.Error(), "WORKSPACE_DIR conflict")
}

func TestResolveRepoPathRejectsDeepPaths(testInstance *testing.T) {
	resolver := newTestResolver(afero.NewMemMapFs(), &stubRepositoryOperations{})
	_, resolveError := resolver.Resolve(context.Background(), "acme/widget/extra")
	require.Error(testInstance, resolveError)
	require.Contains(testInstance, resolveError.Error(), "expected 'owner/project'")
}

func TestResolveProjectShorthand(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	projectFilePath := workspace.ProjectFilePath(testResolverHomeConstant, "widget")
	require.NoError(testInstance, workspace.SetWorkspaceDir(fileSystem, projectFilePath, testResolverPrimaryDirConstant))
	resolver := newTestResolver(fileSystem, &stubRepositoryOperations{defaultBranch: testResolverDefaultBranchConstant})

	resolution, resolveError := resolver.Resolve(context.Background(), "widget")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, projectFilePath, resolution.ProjectFile)
	require.Equal(testInstance, "widget", resolution.ProjectName)
	require.Equal(testInstance, testResolverPrimaryDirConstant, resolution.PrimaryWorkspaceDir)
	require.Equal(testInstance, testResolverDefaultBranchConstant, resolution.CheckoutTarget)
}

func TestResolveChangeSpecName(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	changeSpecFilePath := "/home/dev/.sase/projects/widget/widget_fix_login.gp"
	require.NoError(testInstance, workspace.SaveProjectDocument(fileSystem, changeSpecFilePath, workspace.ProjectDocument{
		Name:         "widget_fix_login",
		WorkspaceDir: testResolverPrimaryDirConstant,
	}))

	resolver := newTestResolver(fileSystem, &stubRepositoryOperations{})
	resolver.ChangeSpecs = func(name string) (workspace.ChangeSpecMatch, bool, error) {
		if name == "widget_fix_login" {
			return workspace.ChangeSpecMatch{FilePath: changeSpecFilePath, ProjectBasename: "widget"}, true, nil
		}
		return workspace.ChangeSpecMatch{}, false, nil
	}

	resolution, resolveError := resolver.Resolve(context.Background(), "widget_fix_login")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "widget", resolution.ProjectName)
	require.Equal(testInstance, "origin/widget_fix_login", resolution.CheckoutTarget)
	require.Equal(testInstance, testResolverPrimaryDirConstant, resolution.PrimaryWorkspaceDir)
}

func TestResolveUnknownRefFails(testInstance *testing.T) {
	resolver := newTestResolver(afero.NewMemMapFs(), &stubRepositoryOperations{})
	resolver.ChangeSpecs = func(string) (workspace.ChangeSpecMatch, bool, error) {
		return workspace.ChangeSpecMatch{}, false, nil
	}

	_, resolveError := resolver.Resolve(context.Background(), "mystery")
	refError := workspace.UnresolvableRefError{}
	require.ErrorAs(testInstance, resolveError, &refError)
	require.Equal(testInstance, "mystery", refError.Ref)
}

func TestEnsureClone(testInstance *testing.T) {
	testCases := []struct {
		name              string
		existingClone     bool
		expectedCloneRuns int
	}{
		{
			name:              "creates_missing_clone",
			expectedCloneRuns: 1,
		},
		{
			name:              "reuses_existing_clone",
			existingClone:     true,
			expectedCloneRuns: 0,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := afero.NewMemMapFs()
			if testCase.existingClone {
				require.NoError(testInstance, fileSystem.MkdirAll("/home/dev/projects/github/acme/widget__2", 0o755))
			}
			repository := &stubRepositoryOperations{}
			manager, creationError := workspace.NewCloneManager(fileSystem, repository)
			require.NoError(testInstance, creationError)

			cloneDirectory, ensureError := manager.EnsureClone(context.Background(), testResolverPrimaryDirConstant, 2)
			require.NoError(testInstance, ensureError)
			require.Equal(testInstance, "/home/dev/projects/github/acme/widget__2", cloneDirectory)
			require.Len(testInstance, repository.clonedTargets, testCase.expectedCloneRuns)
		})
	}
}
