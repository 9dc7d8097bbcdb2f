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
	projectsParentDirectoryNameConstant     = "projects"
	githubCloneDirectoryNameConstant        = "github"
	repoPathSegmentCountConstant            = 2
	originBranchTemplateConstant            = "origin/%s"
	invalidRepoPathMessageTemplateConstant  = "invalid repo path %q: expected 'owner/project'"
	workspaceConflictMessageTemplateConst   = "WORKSPACE_DIR conflict for %q: existing=%s, derived=%s"
	changeSpecWorkspaceMissingTemplateConst = "changespec %q found in %s but WORKSPACE_DIR is not set"
	unresolvableRefMessageTemplateConstant  = "cannot resolve gh ref %q"
	resolverFileSystemMissingConstant       = "ref resolver filesystem not configured"
	resolverRepositoryMissingConstant       = "ref resolver repository operations not configured"
	resolverHomeMissingConstant             = "ref resolver home directory not configured"
)

// ResolvedRef holds the workspace and branch information a reference maps to.
type ResolvedRef struct {
	ProjectFile         string
	ProjectName         string
	PrimaryWorkspaceDir string
	CheckoutTarget      string
}

// ChangeSpecMatch identifies a changespec located by name.
type ChangeSpecMatch struct {
	FilePath        string
	ProjectBasename string
}

// ChangeSpecLookup locates a changespec by name across every project.
type ChangeSpecLookup func(name string) (ChangeSpecMatch, bool, error)

// DefaultBranchLookup resolves the default branch of an owner/project
// repository from the hosting service.
type DefaultBranchLookup func(executionContext context.Context, repository string) (string, error)

// Resolver construction errors.
var (
	ErrResolverFileSystemNotConfigured = errors.New(resolverFileSystemMissingConstant)
	ErrResolverRepositoryNotConfigured = errors.New(resolverRepositoryMissingConstant)
	ErrResolverHomeNotConfigured       = errors.New(resolverHomeMissingConstant)
)

// UnresolvableRefError indicates a reference matched none of the resolution modes.
type UnresolvableRefError struct {
	Ref string
}

// Error describes the unresolvable reference.
func (refError UnresolvableRefError) Error() string {
	return fmt.Sprintf(unresolvableRefMessageTemplateConstant, refError.Ref)
}

// Resolver maps #gh references onto workspaces and checkout targets.
type Resolver struct {
	FileSystem             afero.Fs
	HomeDirectory          string
	Repository             RepositoryOperations
	GitHubUsernameProvider func() string
	ChangeSpecs            ChangeSpecLookup
	DefaultBranchFallback  DefaultBranchLookup
}

func (resolver *Resolver) validate() error {
	if resolver.FileSystem == nil {
		return ErrResolverFileSystemNotConfigured
	}
	if resolver.Repository == nil {
		return ErrResolverRepositoryNotConfigured
	}
	if len(resolver.HomeDirectory) == 0 {
		return ErrResolverHomeNotConfigured
	}
	return nil
}

// Resolve maps a reference onto workspace information. Three modes apply in
// order: an owner/project repo path derives and clones the primary workspace,
// a project shorthand reads the recorded workspace, and a changespec name
// checks out the matching origin branch.
func (resolver *Resolver) Resolve(executionContext context.Context, ref string) (ResolvedRef, error) {
	if validationError := resolver.validate(); validationError != nil {
		return ResolvedRef{}, validationError
	}

	if strings.Contains(ref, trailingSlashConstant) {
		return resolver.resolveRepoPath(executionContext, ref)
	}

	shorthandResolution, shorthandMatched, shorthandError := resolver.resolveProjectShorthand(executionContext, ref)
	if shorthandError != nil {
		return ResolvedRef{}, shorthandError
	}
	if shorthandMatched {
		return shorthandResolution, nil
	}

	if resolver.ChangeSpecs != nil {
		changeSpecResolution, changeSpecMatched, changeSpecError := resolver.resolveChangeSpecName(ref)
		if changeSpecError != nil {
			return ResolvedRef{}, changeSpecError
		}
		if changeSpecMatched {
			return changeSpecResolution, nil
		}
	}

	return ResolvedRef{}, UnresolvableRefError{Ref: ref}
}

func (resolver *Resolver) resolveRepoPath(executionContext context.Context, ref string) (ResolvedRef, error) {
	pathSegments := strings.Split(strings.Trim(ref, trailingSlashConstant), trailingSlashConstant)
	if len(pathSegments) != repoPathSegmentCountConstant {
		return ResolvedRef{}, fmt.Errorf(invalidRepoPathMessageTemplateConstant, ref)
	}
	repositoryOwner := pathSegments[0]
	projectName := pathSegments[1]

	primaryWorkspaceDir := filepath.Join(resolver.HomeDirectory, projectsParentDirectoryNameConstant, githubCloneDirectoryNameConstant, repositoryOwner, projectName) + trailingSlashConstant
	projectFilePath := ProjectFilePath(resolver.HomeDirectory, projectName)

	existingWorkspaceDir, parseError := ParseWorkspaceDir(resolver.FileSystem, projectFilePath)
	if parseError != nil {
		return ResolvedRef{}, parseError
	}
	if len(existingWorkspaceDir) > 0 && filepath.Clean(existingWorkspaceDir) != filepath.Clean(primaryWorkspaceDir) {
		return ResolvedRef{}, fmt.Errorf(workspaceConflictMessageTemplateConst, projectName, existingWorkspaceDir, primaryWorkspaceDir)
	}

	workspaceExists, statError := afero.DirExists(resolver.FileSystem, strings.TrimSuffix(primaryWorkspaceDir, trailingSlashConstant))
	if statError != nil {
		return ResolvedRef{}, statError
	}
	if !workspaceExists {
		configuredUsername := ""
		if resolver.GitHubUsernameProvider != nil {
			configuredUsername = resolver.GitHubUsernameProvider()
		}
		cloneURL, urlError := gitrepo.GitHubRemoteURL(repositoryOwner, projectName, configuredUsername)
		if urlError != nil {
			return ResolvedRef{}, urlError
		}
		cloneError := resolver.Repository.Clone(executionContext, cloneURL, strings.TrimSuffix(primaryWorkspaceDir, trailingSlashConstant))
		if cloneError != nil {
			return ResolvedRef{}, cloneError
		}
	}

	recordError := SetWorkspaceDir(resolver.FileSystem, projectFilePath, primaryWorkspaceDir)
	if recordError != nil {
		return ResolvedRef{}, recordError
	}

	checkoutTarget, branchError := resolver.Repository.DefaultBranchRef(executionContext, primaryWorkspaceDir)
	// A fresh clone may not have origin/HEAD recorded yet; the hosting
	// service still knows the default branch.
	if (branchError != nil || len(checkoutTarget) == 0) && resolver.DefaultBranchFallback != nil {
		defaultBranch, fallbackError := resolver.DefaultBranchFallback(executionContext, repositoryOwner+trailingSlashConstant+projectName)
		if fallbackError == nil && len(defaultBranch) > 0 {
			checkoutTarget = fmt.Sprintf(originBranchTemplateConstant, defaultBranch)
			branchError = nil
		}
	}
	if branchError != nil {
		return ResolvedRef{}, branchError
	}

	return ResolvedRef{
		ProjectFile:         projectFilePath,
		ProjectName:         projectName,
		PrimaryWorkspaceDir: primaryWorkspaceDir,
		CheckoutTarget:      checkoutTarget,
	}, nil
}

func (resolver *Resolver) resolveProjectShorthand(executionContext context.Context, ref string) (ResolvedRef, bool, error) {
	projectFilePath := ProjectFilePath(resolver.HomeDirectory, ref)
	projectFileExists, existsError := afero.Exists(resolver.FileSystem, projectFilePath)
	if existsError != nil {
		return ResolvedRef{}, false, existsError
	}
	if !projectFileExists {
		return ResolvedRef{}, false, nil
	}

	workspaceDir, parseError := ParseWorkspaceDir(resolver.FileSystem, projectFilePath)
	if parseError != nil {
		return ResolvedRef{}, false, parseError
	}
	if len(workspaceDir) == 0 {
		return ResolvedRef{}, false, nil
	}

	checkoutTarget, branchError := resolver.Repository.DefaultBranchRef(executionContext, workspaceDir)
	if branchError != nil {
		return ResolvedRef{}, false, branchError
	}

	return ResolvedRef{
		ProjectFile:         projectFilePath,
		ProjectName:         ref,
		PrimaryWorkspaceDir: workspaceDir,
		CheckoutTarget:      checkoutTarget,
	}, true, nil
}

func (resolver *Resolver) resolveChangeSpecName(ref string) (ResolvedRef, bool, error) {
	match, matched, lookupError := resolver.ChangeSpecs(ref)
	if lookupError != nil {
		return ResolvedRef{}, false, lookupError
	}
	if !matched {
		return ResolvedRef{}, false, nil
	}

	workspaceDir, parseError := ParseWorkspaceDir(resolver.FileSystem, match.FilePath)
	if parseError != nil {
		return ResolvedRef{}, false, parseError
	}
	if len(workspaceDir) == 0 {
		return ResolvedRef{}, false, fmt.Errorf(changeSpecWorkspaceMissingTemplateConst, ref, match.FilePath)
	}

	return ResolvedRef{
		ProjectFile:         match.FilePath,
		ProjectName:         match.ProjectBasename,
		PrimaryWorkspaceDir: workspaceDir,
		CheckoutTarget:      fmt.Sprintf(originBranchTemplateConstant, ref),
	}, true, nil
}
