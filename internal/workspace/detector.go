package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/sase-run/sase-github/internal/gitrepo"
)

const (
	// GitHubWorkflowType identifies GitHub-hosted projects in host registries.
	GitHubWorkflowType = "gh"
	// GitHubChangeLabel is the display label for GitHub changes.
	GitHubChangeLabel = "PR"
	// GitHubDisplayName is the human-readable provider name.
	GitHubDisplayName = "GitHub"
	// GitHubPreAllocationEnvPrefix prefixes the pre-allocation environment variables.
	GitHubPreAllocationEnvPrefix = "SASE_GH"
	// GitHubReferencePattern matches #gh:ref and #gh(ref) directives in prompts.
	GitHubReferencePattern = `(?:^|\s)#gh(?::([a-zA-Z0-9_./-]+)|\(([^)]+)\))`

	gitMetadataDirectoryNameConstant        = ".git"
	detectorFileSystemMissingConstant       = "workflow detector filesystem not configured"
	detectorRepositoryMissingConstant       = "workflow detector repository operations not configured"
	detectorWorkspaceStatErrorTemplateConst = "inspect workspace %s: %w"
)

// WorkflowMetadata describes the GitHub workflow to the host's registry.
type WorkflowMetadata struct {
	WorkflowType           string
	ReferencePattern       string
	DisplayName            string
	PreAllocationEnvPrefix string
}

// GitHubWorkflowMetadata returns the metadata registered for GitHub projects.
func GitHubWorkflowMetadata() WorkflowMetadata {
	return WorkflowMetadata{
		WorkflowType:           GitHubWorkflowType,
		ReferencePattern:       GitHubReferencePattern,
		DisplayName:            GitHubDisplayName,
		PreAllocationEnvPrefix: GitHubPreAllocationEnvPrefix,
	}
}

// Detector construction errors.
var (
	ErrDetectorFileSystemNotConfigured = errors.New(detectorFileSystemMissingConstant)
	ErrDetectorRepositoryNotConfigured = errors.New(detectorRepositoryMissingConstant)
)

// Detector classifies projects as GitHub-hosted or not.
type Detector struct {
	fileSystem afero.Fs
	repository RepositoryOperations
}

// NewDetector constructs a workflow type detector.
func NewDetector(fileSystem afero.Fs, repository RepositoryOperations) (*Detector, error) {
	if fileSystem == nil {
		return nil, ErrDetectorFileSystemNotConfigured
	}
	if repository == nil {
		return nil, ErrDetectorRepositoryNotConfigured
	}
	return &Detector{fileSystem: fileSystem, repository: repository}, nil
}

// DetectWorkflowType reports GitHubWorkflowType when the project's workspace
// is a non-bare git checkout whose origin points at a hosted remote. Other
// projects yield an empty string so other providers can claim them.
func (detector *Detector) DetectWorkflowType(executionContext context.Context, projectFilePath string) (string, error) {
	document, loadError := LoadProjectDocument(detector.fileSystem, projectFilePath)
	if loadError != nil {
		return "", loadError
	}
	workspaceDir := workspaceDirHomeExpander.Expand(strings.TrimSpace(document.WorkspaceDir))
	if len(workspaceDir) == 0 {
		return "", nil
	}

	gitDirectoryExists, statError := afero.DirExists(detector.fileSystem, filepath.Join(workspaceDir, gitMetadataDirectoryNameConstant))
	if statError != nil {
		return "", fmt.Errorf(detectorWorkspaceStatErrorTemplateConst, workspaceDir, statError)
	}
	if !gitDirectoryExists {
		return "", nil
	}

	// Bare-repo projects belong to the bare-git provider.
	if len(document.BareRepoDir) > 0 {
		return "", nil
	}

	remoteURL, remoteError := detector.repository.RemoteURL(executionContext, workspaceDir)
	if remoteError != nil {
		return "", remoteError
	}
	if len(remoteURL) > 0 && !gitrepo.IsHostedRemote(remoteURL) {
		return "", nil
	}

	return GitHubWorkflowType, nil
}

// ChangeLabel reports GitHubChangeLabel for GitHub projects and an empty
// string otherwise.
func (detector *Detector) ChangeLabel(executionContext context.Context, projectFilePath string) (string, error) {
	workflowType, detectionError := detector.DetectWorkflowType(executionContext, projectFilePath)
	if detectionError != nil {
		return "", detectionError
	}
	if workflowType == GitHubWorkflowType {
		return GitHubChangeLabel, nil
	}
	return "", nil
}
