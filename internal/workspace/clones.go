package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

const (
	cloneSuffixTemplateConstant           = "%s__%d"
	trailingSlashConstant                 = "/"
	cloneFileSystemMissingMessageConstant = "clone manager filesystem not configured"
	cloneRepositoryMissingMessageConstant = "clone manager repository operations not configured"
	cloneTargetStatErrorTemplateConstant  = "inspect workspace clone %s: %w"
)

// RepositoryOperations is the git surface workspace management relies on.
type RepositoryOperations interface {
	Clone(executionContext context.Context, cloneURL string, targetPath string) error
	Checkout(executionContext context.Context, repositoryPath string, reference string) error
	RemoteURL(executionContext context.Context, repositoryPath string) (string, error)
	DefaultBranchRef(executionContext context.Context, repositoryPath string) (string, error)
}

// Clone manager construction errors.
var (
	ErrCloneFileSystemNotConfigured = errors.New(cloneFileSystemMissingMessageConstant)
	ErrCloneRepositoryNotConfigured = errors.New(cloneRepositoryMissingMessageConstant)
)

// CloneManager maintains the numbered clones of a primary workspace.
type CloneManager struct {
	fileSystem afero.Fs
	repository RepositoryOperations
}

// NewCloneManager constructs a clone manager.
func NewCloneManager(fileSystem afero.Fs, repository RepositoryOperations) (*CloneManager, error) {
	if fileSystem == nil {
		return nil, ErrCloneFileSystemNotConfigured
	}
	if repository == nil {
		return nil, ErrCloneRepositoryNotConfigured
	}
	return &CloneManager{fileSystem: fileSystem, repository: repository}, nil
}

// CloneDirectoryForNumber derives the numbered clone path for a primary workspace.
func CloneDirectoryForNumber(primaryWorkspaceDir string, workspaceNumber int) string {
	trimmedPrimary := strings.TrimSuffix(primaryWorkspaceDir, trailingSlashConstant)
	return fmt.Sprintf(cloneSuffixTemplateConstant, trimmedPrimary, workspaceNumber)
}

// EnsureClone returns the numbered clone directory for a workspace, cloning
// from the primary workspace when it does not exist yet.
func (manager *CloneManager) EnsureClone(executionContext context.Context, primaryWorkspaceDir string, workspaceNumber int) (string, error) {
	cloneDirectory := CloneDirectoryForNumber(primaryWorkspaceDir, workspaceNumber)

	cloneExists, statError := afero.DirExists(manager.fileSystem, cloneDirectory)
	if statError != nil {
		return "", fmt.Errorf(cloneTargetStatErrorTemplateConstant, cloneDirectory, statError)
	}
	if cloneExists {
		return cloneDirectory, nil
	}

	cloneError := manager.repository.Clone(executionContext, strings.TrimSuffix(primaryWorkspaceDir, trailingSlashConstant), cloneDirectory)
	if cloneError != nil {
		return "", cloneError
	}
	return cloneDirectory, nil
}
