// Package runner implements the GitHub runner provider: workspace allocation
// before an agent run and diff capture plus claim release afterwards. The
// host invokes it for %gh directives under the provider name "gh".
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sase-run/sase-github/internal/workspace"
)

const (
	preAllocatedEnvSuffixConstant       = "_PRE_ALLOCATED"
	workspaceNumberEnvSuffixConstant    = "_WORKSPACE_NUM"
	workspaceDirectoryEnvSuffixConstant = "_WORKSPACE_DIR"
	preAllocatedEnabledValueConstant    = "1"
	workflowNameTemplateConstant        = "gh-%s"
	diffArtifactNameTemplateConstant    = "gh_diff_%s.diff"
	diffArtifactPermissionsConstant     = 0o600
	metaWorkspaceKeyConstant            = "meta_workspace"
	metaCommitMessageKeyConstant        = "meta_commit_message"
	repositoryMissingMessageConstant    = "runner provider repository operations not configured"
	resolverMissingMessageConstant      = "runner provider resolver not configured"
	fieldMissingMessageConstant         = "runner provider workspace field not configured"
	clonesMissingMessageConstant        = "runner provider clone manager not configured"
	claimFailedMessageTemplateConstant  = "failed to claim workspace #%d"
	workspaceNumberParseTemplateConst   = "parse pre-allocated workspace number %q: %w"
	allocatedLogMessageConstant         = "Allocated workspace"
	releasedLogMessageConstant          = "Released workspace"
	workspaceNumberLogFieldConstant     = "workspace_num"
	workspaceDirectoryLogFieldConstant  = "workspace_dir"
	referenceLogFieldConstant           = "ref"
	changeSpecLogFieldConstant          = "cl_name"
)

// GitOperations is the git surface the runner relies on.
type GitOperations interface {
	Fetch(executionContext context.Context, repositoryPath string) error
	Checkout(executionContext context.Context, repositoryPath string, reference string) error
	HeadRevision(executionContext context.Context, repositoryPath string) (string, error)
	Diff(executionContext context.Context, repositoryPath string, baseRevision string) (string, error)
	LatestCommitSubject(executionContext context.Context, repositoryPath string) (string, error)
}

// RefResolver maps #gh references onto workspaces.
type RefResolver interface {
	Resolve(executionContext context.Context, ref string) (workspace.ResolvedRef, error)
}

// CloneEnsurer maintains numbered workspace clones.
type CloneEnsurer interface {
	EnsureClone(executionContext context.Context, primaryWorkspaceDir string, workspaceNumber int) (string, error)
}

// Context carries the workspace state of one agent run.
type Context struct {
	ProjectName         string
	ProjectFile         string
	WorkspaceDir        string
	WorkspaceNumber     int
	CheckoutTarget      string
	PrimaryWorkspaceDir string
	ShouldRelease       bool
	HeadBefore          string
}

// PostAgentResult carries the artifacts of a finished agent run.
type PostAgentResult struct {
	DiffPath string
	Meta     map[string]string
}

// Options tune workspace allocation. A zero WorkspaceNumber selects the first
// available workspace; Release controls whether the claim is dropped after
// the run (an unreleased claim pins the workspace).
type Options struct {
	WorkspaceNumber int
	Release         bool
}

// Provider construction errors.
var (
	ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)
	ErrResolverNotConfigured   = errors.New(resolverMissingMessageConstant)
	ErrFieldNotConfigured      = errors.New(fieldMissingMessageConstant)
	ErrClonesNotConfigured     = errors.New(clonesMissingMessageConstant)
)

// GitHubProvider manages the workspace lifecycle for GitHub agent runs.
type GitHubProvider struct {
	Logger            *zap.Logger
	FileSystem        afero.Fs
	Repository        GitOperations
	Resolver          RefResolver
	Field             *workspace.Field
	Clones            CloneEnsurer
	EnvironmentLookup func(key string) string
	ProcessID         func() int
	TempDirectory     string
}

// Name returns the runner registry identifier.
func (provider *GitHubProvider) Name() string {
	return workspace.GitHubWorkflowType
}

func (provider *GitHubProvider) validate() error {
	if provider.Repository == nil {
		return ErrRepositoryNotConfigured
	}
	if provider.Resolver == nil {
		return ErrResolverNotConfigured
	}
	if provider.Field == nil {
		return ErrFieldNotConfigured
	}
	if provider.Clones == nil {
		return ErrClonesNotConfigured
	}
	if provider.Logger == nil {
		provider.Logger = zap.NewNop()
	}
	if provider.FileSystem == nil {
		provider.FileSystem = afero.NewOsFs()
	}
	if provider.EnvironmentLookup == nil {
		provider.EnvironmentLookup = os.Getenv
	}
	if provider.ProcessID == nil {
		provider.ProcessID = os.Getpid
	}
	if len(provider.TempDirectory) == 0 {
		provider.TempDirectory = os.TempDir()
	}
	return nil
}

// Allocate resolves a reference and claims a workspace for it. Pre-allocation
// through SASE_GH_PRE_ALLOCATED short-circuits workspace selection so the
// host's interactive surface can hand over a prepared workspace.
func (provider *GitHubProvider) Allocate(executionContext context.Context, ref string, options Options) (Context, error) {
	if validationError := provider.validate(); validationError != nil {
		return Context{}, validationError
	}

	resolved, resolveError := provider.Resolver.Resolve(executionContext, ref)
	if resolveError != nil {
		return Context{}, resolveError
	}

	workspaceNumber := 0
	workspaceDir := ""
	preAllocated := provider.EnvironmentLookup(workspace.GitHubPreAllocationEnvPrefix+preAllocatedEnvSuffixConstant) == preAllocatedEnabledValueConstant
	switch {
	case preAllocated:
		rawNumber := provider.EnvironmentLookup(workspace.GitHubPreAllocationEnvPrefix + workspaceNumberEnvSuffixConstant)
		parsedNumber, parseError := strconv.Atoi(rawNumber)
		if parseError != nil {
			return Context{}, fmt.Errorf(workspaceNumberParseTemplateConst, rawNumber, parseError)
		}
		workspaceNumber = parsedNumber
		workspaceDir = provider.EnvironmentLookup(workspace.GitHubPreAllocationEnvPrefix + workspaceDirectoryEnvSuffixConstant)
	case options.WorkspaceNumber > 0:
		workspaceNumber = options.WorkspaceNumber
		ensuredDir, ensureError := provider.Clones.EnsureClone(executionContext, resolved.PrimaryWorkspaceDir, workspaceNumber)
		if ensureError != nil {
			return Context{}, ensureError
		}
		workspaceDir = ensuredDir
	default:
		availableNumber, availabilityError := provider.Field.FirstAvailable(resolved.ProjectFile)
		if availabilityError != nil {
			return Context{}, availabilityError
		}
		workspaceNumber = availableNumber
		ensuredDir, ensureError := provider.Clones.EnsureClone(executionContext, resolved.PrimaryWorkspaceDir, workspaceNumber)
		if ensureError != nil {
			return Context{}, ensureError
		}
		workspaceDir = ensuredDir
	}

	claimed, claimError := provider.Field.Claim(resolved.ProjectFile, workspace.WorkspaceClaim{
		WorkspaceNumber: workspaceNumber,
		WorkflowName:    WorkflowNameForRef(ref),
		ProcessID:       provider.ProcessID(),
		Pinned:          !options.Release,
	})
	if claimError != nil {
		return Context{}, claimError
	}
	if !claimed {
		return Context{}, fmt.Errorf(claimFailedMessageTemplateConstant, workspaceNumber)
	}

	provider.Logger.Info(
		allocatedLogMessageConstant,
		zap.String(referenceLogFieldConstant, ref),
		zap.Int(workspaceNumberLogFieldConstant, workspaceNumber),
		zap.String(workspaceDirectoryLogFieldConstant, workspaceDir),
	)

	return Context{
		ProjectName:         resolved.ProjectName,
		ProjectFile:         resolved.ProjectFile,
		WorkspaceDir:        workspaceDir,
		WorkspaceNumber:     workspaceNumber,
		CheckoutTarget:      resolved.CheckoutTarget,
		PrimaryWorkspaceDir: resolved.PrimaryWorkspaceDir,
		ShouldRelease:       options.Release,
	}, nil
}

// PreAgent allocates a workspace and prepares it for the agent: the checkout
// target is fetched and checked out, and the starting revision is recorded so
// PostAgent can report what the agent changed.
func (provider *GitHubProvider) PreAgent(executionContext context.Context, ref string, options Options) (Context, error) {
	runContext, allocationError := provider.Allocate(executionContext, ref, options)
	if allocationError != nil {
		return Context{}, allocationError
	}

	fetchError := provider.Repository.Fetch(executionContext, runContext.WorkspaceDir)
	if fetchError != nil {
		return Context{}, fetchError
	}
	checkoutError := provider.Repository.Checkout(executionContext, runContext.WorkspaceDir, runContext.CheckoutTarget)
	if checkoutError != nil {
		return Context{}, checkoutError
	}

	headBefore, revisionError := provider.Repository.HeadRevision(executionContext, runContext.WorkspaceDir)
	if revisionError != nil {
		return Context{}, revisionError
	}
	runContext.HeadBefore = headBefore
	return runContext, nil
}

// PostAgent releases the claim when owed and captures the run's artifacts: a
// diff against the starting revision and metadata for the host. The commit
// message is attached only when the agent created new commits.
func (provider *GitHubProvider) PostAgent(executionContext context.Context, runContext Context) (PostAgentResult, error) {
	if validationError := provider.validate(); validationError != nil {
		return PostAgentResult{}, validationError
	}

	if runContext.ShouldRelease {
		releaseError := provider.Field.Release(runContext.ProjectFile, runContext.WorkspaceNumber)
		if releaseError != nil {
			return PostAgentResult{}, releaseError
		}
		provider.Logger.Info(
			releasedLogMessageConstant,
			zap.Int(workspaceNumberLogFieldConstant, runContext.WorkspaceNumber),
			zap.String(changeSpecLogFieldConstant, ChangeSpecNameForCheckoutTarget(runContext.CheckoutTarget)),
		)
	}

	diffPath, diffError := provider.captureDiff(executionContext, runContext)
	if diffError != nil {
		return PostAgentResult{}, diffError
	}

	meta := map[string]string{
		metaWorkspaceKeyConstant: strconv.Itoa(runContext.WorkspaceNumber),
	}

	if len(runContext.HeadBefore) > 0 {
		headNow, revisionError := provider.Repository.HeadRevision(executionContext, runContext.WorkspaceDir)
		if revisionError != nil {
			return PostAgentResult{}, revisionError
		}
		if headNow != runContext.HeadBefore {
			commitSubject, subjectError := provider.Repository.LatestCommitSubject(executionContext, runContext.WorkspaceDir)
			if subjectError != nil {
				return PostAgentResult{}, subjectError
			}
			if len(commitSubject) > 0 {
				meta[metaCommitMessageKeyConstant] = commitSubject
			}
		}
	}

	return PostAgentResult{DiffPath: diffPath, Meta: meta}, nil
}

func (provider *GitHubProvider) captureDiff(executionContext context.Context, runContext Context) (string, error) {
	if len(runContext.HeadBefore) == 0 {
		return "", nil
	}

	diffOutput, diffError := provider.Repository.Diff(executionContext, runContext.WorkspaceDir, runContext.HeadBefore)
	if diffError != nil {
		return "", diffError
	}

	artifactName := fmt.Sprintf(diffArtifactNameTemplateConstant, uuid.NewString())
	artifactPath := filepath.Join(provider.TempDirectory, artifactName)
	writeError := afero.WriteFile(provider.FileSystem, artifactPath, []byte(diffOutput), diffArtifactPermissionsConstant)
	if writeError != nil {
		return "", writeError
	}
	return artifactPath, nil
}

// WorkflowNameForRef renders the workflow identifier used for claims.
func WorkflowNameForRef(ref string) string {
	return fmt.Sprintf(workflowNameTemplateConstant, ref)
}

// ChangeSpecNameForCheckoutTarget derives the changespec name owed a release.
// Checkout targets holding a slash are remote references, not changespecs.
func ChangeSpecNameForCheckoutTarget(checkoutTarget string) string {
	if strings.Contains(checkoutTarget, "/") {
		return ""
	}
	return checkoutTarget
}
