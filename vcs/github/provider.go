// Package github implements the GitHub VCS provider. GitHub-only operations
// shell out to the gh CLI; git behavior runs through the shared executor.
// Importing this package registers the provider under the name "github".
package github

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sase-run/sase-github/internal/changespec"
	"github.com/sase-run/sase-github/internal/githubcli"
	"github.com/sase-run/sase-github/internal/gitrepo"
	"github.com/sase-run/sase-github/internal/saseconfig"
	"github.com/sase-run/sase-github/internal/workspace"
	"github.com/sase-run/sase-github/vcs"
)

const (
	// ProviderName identifies this provider in the host registry.
	ProviderName = "github"

	submitWorkflowNameTemplateConstant  = "submit-%s"
	executorMissingMessageConstant      = "github provider requires a command executor"
	homeDirectoryErrorTemplateConstant  = "resolve home directory: %w"
	changeSpecNotFoundTemplateConstant  = "changespec %q not found"
	projectMismatchTemplateConstant     = "changespec %q belongs to project %q, not %q"
	notGitHubProjectTemplateConstant    = "changespec %q does not belong to a GitHub project"
	activeChildrenMessageConstant       = "cannot submit: other changespecs have this one as their parent and are not Submitted, Reverted, or Archived"
	workspaceDirNotSetTemplateConstant  = "WORKSPACE_DIR is not set for changespec %q"
	claimFailedMessageTemplateConstant  = "failed to claim workspace #%d"
	checkoutFailedTemplateConstant      = "failed to checkout branch %s: %w"
	missingPullRequestMessageConstant   = "GitHub project has no PR for this branch. Create a PR first with #pr"
	usernameNotConfiguredMessageConst   = "cannot submit GitHub PR: 'github_username' is not configured in sase.yml. Add 'github_username: <your_username>' to ~/.config/sase/sase.yml"
	submitStartedLogMessageConstant     = "Submitting changespec"
	submitMergedLogMessageConstant      = "Pull request merged"
	workspaceReleasedLogMessageConstant = "Released workspace"
	changeSpecNameLogFieldConstant      = "changespec"
	workspaceNumberLogFieldConstant     = "workspace_num"
)

// ErrMissingPullRequest indicates a submission was attempted before mailing.
var ErrMissingPullRequest = errors.New(missingPullRequestMessageConstant)

// ErrUsernameNotConfigured indicates the sase config lacks github_username.
var ErrUsernameNotConfigured = errors.New(usernameNotConfiguredMessageConst)

// components holds the wired building blocks shared by the provider types.
type components struct {
	logger        *zap.Logger
	fileSystem    afero.Fs
	homeDirectory string
	repository    *gitrepo.RepositoryManager
	github        *githubcli.Client
	detector      *workspace.Detector
	field         *workspace.Field
	cloneManager  *workspace.CloneManager
	changeSpecs   *changespec.Store
	username      func() string
}

func buildComponents(dependencies vcs.Dependencies) (*components, error) {
	if dependencies.Executor == nil {
		return nil, errors.New(executorMissingMessageConstant)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	homeDirectory := dependencies.HomeDirectory
	if len(homeDirectory) == 0 {
		resolvedHome, homeError := os.UserHomeDir()
		if homeError != nil {
			return nil, fmt.Errorf(homeDirectoryErrorTemplateConstant, homeError)
		}
		homeDirectory = resolvedHome
	}

	repository, repositoryError := gitrepo.NewRepositoryManager(dependencies.Executor)
	if repositoryError != nil {
		return nil, repositoryError
	}

	githubClient, clientError := githubcli.NewClient(dependencies.Executor)
	if clientError != nil {
		return nil, clientError
	}

	detector, detectorError := workspace.NewDetector(fileSystem, repository)
	if detectorError != nil {
		return nil, detectorError
	}

	field, fieldError := workspace.NewField(fileSystem, nil)
	if fieldError != nil {
		return nil, fieldError
	}

	cloneManager, cloneManagerError := workspace.NewCloneManager(fileSystem, repository)
	if cloneManagerError != nil {
		return nil, cloneManagerError
	}

	changeSpecStore, storeError := changespec.NewStore(fileSystem, homeDirectory, repository)
	if storeError != nil {
		return nil, storeError
	}

	configurationLoader := saseconfig.NewLoader(homeDirectory)
	configurationFilePath := dependencies.ConfigurationFilePath
	usernameProvider := func() string {
		configuredUsername, usernameError := configurationLoader.GitHubUsername(configurationFilePath)
		if usernameError != nil {
			logger.Warn("Failed to load sase configuration", zap.Error(usernameError))
			return ""
		}
		return configuredUsername
	}

	return &components{
		logger:        logger,
		fileSystem:    fileSystem,
		homeDirectory: homeDirectory,
		repository:    repository,
		github:        githubClient,
		detector:      detector,
		field:         field,
		cloneManager:  cloneManager,
		changeSpecs:   changeSpecStore,
		username:      usernameProvider,
	}, nil
}

// Provider is the GitHub implementation of the VCS provider contract.
type Provider struct {
	*components
}

// New constructs the GitHub provider from host dependencies.
func New(dependencies vcs.Dependencies) (*Provider, error) {
	built, buildError := buildComponents(dependencies)
	if buildError != nil {
		return nil, buildError
	}
	return &Provider{components: built}, nil
}

func init() {
	vcs.MustRegister(ProviderName, func(dependencies vcs.Dependencies) (vcs.Provider, error) {
		return New(dependencies)
	})
}

// Name returns the registry identifier.
func (provider *Provider) Name() string {
	return ProviderName
}

// ChangeURL resolves the pull request URL for the current branch. A branch
// without a pull request yields an empty URL.
func (provider *Provider) ChangeURL(executionContext context.Context, workingDirectory string) (string, error) {
	view, found, viewError := provider.github.ViewPullRequest(executionContext, workingDirectory)
	if viewError != nil {
		return "", viewError
	}
	if !found {
		return "", nil
	}
	return view.URL, nil
}

// ChangeNumber resolves the pull request number for the current branch. A
// branch without a pull request yields an empty number.
func (provider *Provider) ChangeNumber(executionContext context.Context, workingDirectory string) (string, error) {
	view, found, viewError := provider.github.ViewPullRequest(executionContext, workingDirectory)
	if viewError != nil {
		return "", viewError
	}
	if !found {
		return "", nil
	}
	return strconv.Itoa(view.Number), nil
}

// Mail pushes the revision to origin and ensures a pull request exists,
// creating one from the commit metadata when the branch has none yet. An
// empty revision mails the branch currently checked out.
func (provider *Provider) Mail(executionContext context.Context, revision string, workingDirectory string) error {
	if len(revision) == 0 {
		currentBranch, branchError := provider.repository.CurrentBranch(executionContext, workingDirectory)
		if branchError != nil {
			return branchError
		}
		revision = currentBranch
	}

	pushError := provider.repository.Push(executionContext, workingDirectory, revision)
	if pushError != nil {
		return pushError
	}

	_, found, viewError := provider.github.ViewPullRequest(executionContext, workingDirectory)
	if viewError != nil {
		return viewError
	}
	if found {
		return nil
	}
	return provider.github.CreatePullRequest(executionContext, workingDirectory)
}

// Submit lands a changespec by merging its pull request into the default
// branch. The workspace is claimed for the duration of the submission and the
// remote branch is deleted after the merge.
func (provider *Provider) Submit(executionContext context.Context, request vcs.SubmitRequest) error {
	spec, found, findError := provider.changeSpecs.FindByName(request.ChangeSpecName)
	if findError != nil {
		return findError
	}
	if !found {
		return fmt.Errorf(changeSpecNotFoundTemplateConstant, request.ChangeSpecName)
	}
	if len(request.ProjectBasename) > 0 && spec.ProjectBasename != request.ProjectBasename {
		return fmt.Errorf(projectMismatchTemplateConstant, request.ChangeSpecName, spec.ProjectBasename, request.ProjectBasename)
	}

	workflowType, detectionError := provider.detector.DetectWorkflowType(executionContext, spec.FilePath)
	if detectionError != nil {
		return detectionError
	}
	if workflowType != workspace.GitHubWorkflowType {
		return fmt.Errorf(notGitHubProjectTemplateConstant, request.ChangeSpecName)
	}

	allSpecs, enumerateError := provider.changeSpecs.FindAll()
	if enumerateError != nil {
		return enumerateError
	}
	if changespec.HasActiveChildren(spec, allSpecs, changespec.TerminalStatuses) {
		return errors.New(activeChildrenMessageConstant)
	}

	primaryWorkspaceDir, parseError := workspace.ParseWorkspaceDir(provider.fileSystem, spec.FilePath)
	if parseError != nil {
		return parseError
	}
	if len(primaryWorkspaceDir) == 0 {
		return fmt.Errorf(workspaceDirNotSetTemplateConstant, request.ChangeSpecName)
	}

	workspaceNumber, availabilityError := provider.field.FirstAvailable(spec.FilePath)
	if availabilityError != nil {
		return availabilityError
	}
	workflowName := fmt.Sprintf(submitWorkflowNameTemplateConstant, request.ChangeSpecName)

	workspaceDir, cloneError := provider.cloneManager.EnsureClone(executionContext, primaryWorkspaceDir, workspaceNumber)
	if cloneError != nil {
		return cloneError
	}

	claimed, claimError := provider.field.Claim(spec.FilePath, workspace.WorkspaceClaim{
		WorkspaceNumber: workspaceNumber,
		WorkflowName:    workflowName,
		ProcessID:       os.Getpid(),
		ChangeSpecName:  request.ChangeSpecName,
	})
	if claimError != nil {
		return claimError
	}
	if !claimed {
		return fmt.Errorf(claimFailedMessageTemplateConstant, workspaceNumber)
	}
	defer func() {
		releaseError := provider.field.Release(spec.FilePath, workspaceNumber)
		if releaseError != nil {
			provider.logger.Warn("Failed to release workspace", zap.Error(releaseError))
			return
		}
		provider.logger.Info(workspaceReleasedLogMessageConstant, zap.Int(workspaceNumberLogFieldConstant, workspaceNumber))
	}()

	provider.logger.Info(
		submitStartedLogMessageConstant,
		zap.String(changeSpecNameLogFieldConstant, request.ChangeSpecName),
		zap.Int(workspaceNumberLogFieldConstant, workspaceNumber),
	)

	branchName := spec.BranchName
	if len(branchName) == 0 {
		branchName = spec.Name
	}
	checkoutError := provider.repository.Checkout(executionContext, workspaceDir, branchName)
	if checkoutError != nil {
		return fmt.Errorf(checkoutFailedTemplateConstant, branchName, checkoutError)
	}

	_, pullRequestExists, viewError := provider.github.ViewPullRequest(executionContext, workspaceDir)
	if viewError != nil {
		return viewError
	}
	if !pullRequestExists {
		return ErrMissingPullRequest
	}

	if len(provider.username()) == 0 {
		return ErrUsernameNotConfigured
	}

	mergeError := provider.github.MergePullRequest(executionContext, workspaceDir, githubcli.MergeOptions{DeleteBranch: true})
	if mergeError != nil {
		return mergeError
	}
	provider.logger.Info(submitMergedLogMessageConstant, zap.String(changeSpecNameLogFieldConstant, request.ChangeSpecName))

	return provider.finalizeSubmission(spec)
}

// finalizeSubmission records the terminal status on the changespec document.
func (provider *Provider) finalizeSubmission(spec changespec.Spec) error {
	document, loadError := workspace.LoadProjectDocument(provider.fileSystem, spec.FilePath)
	if loadError != nil {
		return loadError
	}
	document.Status = changespec.StatusSubmitted
	return workspace.SaveProjectDocument(provider.fileSystem, spec.FilePath, document)
}
