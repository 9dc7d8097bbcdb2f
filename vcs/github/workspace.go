package github

import (
	"context"

	"github.com/sase-run/sase-github/internal/workspace"
	"github.com/sase-run/sase-github/vcs"
)

// WorkspaceProvider implements the host's workspace hooks for GitHub-hosted
// projects: workflow detection, change labels, and #gh reference resolution.
type WorkspaceProvider struct {
	*components
	resolver *workspace.Resolver
}

// NewWorkspaceProvider constructs the GitHub workspace provider.
func NewWorkspaceProvider(dependencies vcs.Dependencies) (*WorkspaceProvider, error) {
	built, buildError := buildComponents(dependencies)
	if buildError != nil {
		return nil, buildError
	}

	resolver := &workspace.Resolver{
		FileSystem:             built.fileSystem,
		HomeDirectory:          built.homeDirectory,
		Repository:             built.repository,
		GitHubUsernameProvider: built.username,
		ChangeSpecs: func(name string) (workspace.ChangeSpecMatch, bool, error) {
			spec, found, findError := built.changeSpecs.FindByName(name)
			if findError != nil || !found {
				return workspace.ChangeSpecMatch{}, false, findError
			}
			return workspace.ChangeSpecMatch{
				FilePath:        spec.FilePath,
				ProjectBasename: spec.ProjectBasename,
			}, true, nil
		},
		DefaultBranchFallback: func(executionContext context.Context, repository string) (string, error) {
			metadata, metadataError := built.github.ResolveRepoMetadata(executionContext, repository)
			if metadataError != nil {
				return "", metadataError
			}
			return metadata.DefaultBranch, nil
		},
	}

	return &WorkspaceProvider{components: built, resolver: resolver}, nil
}

// Metadata describes the GitHub workflow to the host registry.
func (provider *WorkspaceProvider) Metadata() workspace.WorkflowMetadata {
	return workspace.GitHubWorkflowMetadata()
}

// DetectWorkflowType reports "gh" for GitHub-hosted projects and an empty
// string for projects owned by other providers.
func (provider *WorkspaceProvider) DetectWorkflowType(executionContext context.Context, projectFilePath string) (string, error) {
	return provider.detector.DetectWorkflowType(executionContext, projectFilePath)
}

// ChangeLabel reports "PR" for GitHub projects.
func (provider *WorkspaceProvider) ChangeLabel(executionContext context.Context, projectFilePath string) (string, error) {
	return provider.detector.ChangeLabel(executionContext, projectFilePath)
}

// ResolveRef maps a #gh reference onto workspace and branch information.
func (provider *WorkspaceProvider) ResolveRef(executionContext context.Context, ref string) (workspace.ResolvedRef, error) {
	return provider.resolver.Resolve(executionContext, ref)
}
