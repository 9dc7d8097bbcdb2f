package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sase-run/sase-github/internal/execshell"
)

const (
	revParseSubcommandConstant            = "rev-parse"
	revListSubcommandConstant             = "rev-list"
	logSubcommandConstant                 = "log"
	diffSubcommandConstant                = "diff"
	pushSubcommandConstant                = "push"
	cloneSubcommandConstant               = "clone"
	checkoutSubcommandConstant            = "checkout"
	fetchSubcommandConstant               = "fetch"
	configSubcommandConstant              = "config"
	symbolicRefSubcommandConstant         = "symbolic-ref"
	lsRemoteSubcommandConstant            = "ls-remote"
	headReferenceConstant                 = "HEAD"
	originRemoteNameConstant              = "origin"
	originHeadReferenceConstant           = "refs/remotes/origin/HEAD"
	originReferencePrefixConstant         = "refs/heads/"
	setUpstreamFlagConstant               = "-u"
	shortFlagConstant                     = "--short"
	abbreviatedRefFlagConstant            = "--abbrev-ref"
	countFlagConstant                     = "--count"
	getFlagConstant                       = "--get"
	symrefFlagConstant                    = "--symref"
	subjectFormatFlagConstant             = "--format=%s"
	latestCommitLimitFlagConstant         = "-1"
	originURLConfigurationKeyConstant     = "remote.origin.url"
	commitRangeTemplateConstant           = "%s..%s"
	remoteBranchTemplateConstant          = "%s/%s"
	symrefOutputFieldCountConstant        = 2
	symrefLinePrefixConstant              = "ref:"
	outputLineSeparatorConstant           = "\n"
	managerExecutorMissingMessageConstant = "git executor not configured"
	revisionFieldNameConstant             = "revision"
	repositoryPathFieldNameConstant       = "repository_path"
	cloneURLFieldNameConstant             = "clone_url"
	gitFieldErrorTemplateConstant         = "%s: %s"
	gitFieldRequiredMessageConstant       = "value required"
)

// GitExecutor is the minimal execshell surface required for git operations.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ErrExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(managerExecutorMissingMessageConstant)

// InvalidInputError surfaces validation issues for repository operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(gitFieldErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryManager performs git operations inside workspace clones.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a repository manager backed by the supplied executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

func (manager *RepositoryManager) run(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// HeadRevision resolves the commit hash currently checked out at HEAD.
func (manager *RepositoryManager) HeadRevision(executionContext context.Context, repositoryPath string) (string, error) {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return "", InvalidInputError{FieldName: repositoryPathFieldNameConstant, Message: gitFieldRequiredMessageConstant}
	}
	return manager.run(executionContext, repositoryPath, revParseSubcommandConstant, headReferenceConstant)
}

// CurrentBranch resolves the short name of the branch checked out at HEAD.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	return manager.run(executionContext, repositoryPath, revParseSubcommandConstant, abbreviatedRefFlagConstant, headReferenceConstant)
}

// LatestCommitSubject returns the subject line of the newest commit at HEAD.
func (manager *RepositoryManager) LatestCommitSubject(executionContext context.Context, repositoryPath string) (string, error) {
	return manager.run(executionContext, repositoryPath, logSubcommandConstant, latestCommitLimitFlagConstant, subjectFormatFlagConstant, headReferenceConstant)
}

// CommitSubjects lists the subject lines of every commit in baseRevision..headRevision, newest first.
func (manager *RepositoryManager) CommitSubjects(executionContext context.Context, repositoryPath string, baseRevision string, headRevision string) ([]string, error) {
	commitRange := fmt.Sprintf(commitRangeTemplateConstant, baseRevision, headRevision)
	logOutput, logError := manager.run(executionContext, repositoryPath, logSubcommandConstant, subjectFormatFlagConstant, commitRange)
	if logError != nil {
		return nil, logError
	}
	if len(logOutput) == 0 {
		return nil, nil
	}
	return strings.Split(logOutput, outputLineSeparatorConstant), nil
}

// CountCommits reports how many commits baseRevision..headRevision contains.
func (manager *RepositoryManager) CountCommits(executionContext context.Context, repositoryPath string, baseRevision string, headRevision string) (int, error) {
	commitRange := fmt.Sprintf(commitRangeTemplateConstant, baseRevision, headRevision)
	countOutput, countError := manager.run(executionContext, repositoryPath, revListSubcommandConstant, countFlagConstant, commitRange)
	if countError != nil {
		return 0, countError
	}
	commitCount := 0
	_, scanError := fmt.Sscanf(countOutput, "%d", &commitCount)
	if scanError != nil {
		return 0, scanError
	}
	return commitCount, nil
}

// Diff returns the unified diff between baseRevision and the working tree at HEAD.
func (manager *RepositoryManager) Diff(executionContext context.Context, repositoryPath string, baseRevision string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{diffSubcommandConstant, baseRevision},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return executionResult.StandardOutput, nil
}

// Push publishes the supplied revision to origin, creating the upstream tracking
// reference so subsequent gh invocations can resolve the branch.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, revision string) error {
	if len(strings.TrimSpace(revision)) == 0 {
		return InvalidInputError{FieldName: revisionFieldNameConstant, Message: gitFieldRequiredMessageConstant}
	}
	_, pushError := manager.run(executionContext, repositoryPath, pushSubcommandConstant, setUpstreamFlagConstant, originRemoteNameConstant, revision)
	return pushError
}

// Clone creates a clone of the supplied URL at targetPath.
func (manager *RepositoryManager) Clone(executionContext context.Context, cloneURL string, targetPath string) error {
	if len(strings.TrimSpace(cloneURL)) == 0 {
		return InvalidInputError{FieldName: cloneURLFieldNameConstant, Message: gitFieldRequiredMessageConstant}
	}
	_, cloneError := manager.run(executionContext, "", cloneSubcommandConstant, cloneURL, targetPath)
	return cloneError
}

// Checkout switches the working tree to the supplied revision or branch.
func (manager *RepositoryManager) Checkout(executionContext context.Context, repositoryPath string, reference string) error {
	if len(strings.TrimSpace(reference)) == 0 {
		return InvalidInputError{FieldName: revisionFieldNameConstant, Message: gitFieldRequiredMessageConstant}
	}
	_, checkoutError := manager.run(executionContext, repositoryPath, checkoutSubcommandConstant, reference)
	return checkoutError
}

// Fetch updates the origin remote tracking references.
func (manager *RepositoryManager) Fetch(executionContext context.Context, repositoryPath string) error {
	_, fetchError := manager.run(executionContext, repositoryPath, fetchSubcommandConstant, originRemoteNameConstant)
	return fetchError
}

// RemoteURL returns the configured origin URL, or an empty string when the
// repository has no origin remote.
func (manager *RepositoryManager) RemoteURL(executionContext context.Context, repositoryPath string) (string, error) {
	configuredURL, lookupError := manager.run(executionContext, repositoryPath, configSubcommandConstant, getFlagConstant, originURLConfigurationKeyConstant)
	if lookupError != nil {
		failedError := execshell.CommandFailedError{}
		if errors.As(lookupError, &failedError) {
			return "", nil
		}
		return "", lookupError
	}
	return configuredURL, nil
}

// DefaultBranchRef resolves the remote default branch as a tracking reference
// such as origin/main. The local symbolic-ref answer is preferred; when the
// clone never recorded origin/HEAD the remote is consulted directly.
func (manager *RepositoryManager) DefaultBranchRef(executionContext context.Context, repositoryPath string) (string, error) {
	symbolicReference, symbolicError := manager.run(executionContext, repositoryPath, symbolicRefSubcommandConstant, shortFlagConstant, originHeadReferenceConstant)
	if symbolicError == nil && len(symbolicReference) > 0 {
		return symbolicReference, nil
	}
	if symbolicError != nil {
		failedError := execshell.CommandFailedError{}
		if !errors.As(symbolicError, &failedError) {
			return "", symbolicError
		}
	}

	lsRemoteOutput, lsRemoteError := manager.run(executionContext, repositoryPath, lsRemoteSubcommandConstant, symrefFlagConstant, originRemoteNameConstant, headReferenceConstant)
	if lsRemoteError != nil {
		return "", lsRemoteError
	}
	for _, outputLine := range strings.Split(lsRemoteOutput, outputLineSeparatorConstant) {
		lineFields := strings.Fields(outputLine)
		if len(lineFields) < symrefOutputFieldCountConstant {
			continue
		}
		if lineFields[0] != symrefLinePrefixConstant {
			continue
		}
		branchName := strings.TrimPrefix(lineFields[1], originReferencePrefixConstant)
		return fmt.Sprintf(remoteBranchTemplateConstant, originRemoteNameConstant, branchName), nil
	}
	return "", nil
}
