package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sase-run/sase-github/internal/execshell"
)

const (
	pullRequestSubcommandConstant           = "pr"
	repoSubcommandConstant                  = "repo"
	viewSubcommandConstant                  = "view"
	createSubcommandConstant                = "create"
	mergeSubcommandConstant                 = "merge"
	jsonFlagConstant                        = "--json"
	fillFlagConstant                        = "--fill"
	mergeStrategyFlagConstant               = "--merge"
	deleteBranchFlagConstant                = "--delete-branch"
	pullRequestViewJSONFieldsConstant       = "number,url"
	repoViewJSONFieldsConstant              = "nameWithOwner,defaultBranchRef"
	workingDirectoryFieldNameConstant       = "working_directory"
	repositoryFieldNameConstant             = "repository"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"

	viewPullRequestOperationNameConstant    = OperationName("ViewPullRequest")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	mergePullRequestOperationNameConstant   = OperationName("MergePullRequest")
	repositoryMetadataOperationNameConstant = OperationName("ResolveRepoMetadata")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestView contains the details resolved for the current branch's pull request.
type PullRequestView struct {
	Number int
	URL    string
}

// RepositoryMetadata contains key details resolved from GitHub.
type RepositoryMetadata struct {
	NameWithOwner string
	DefaultBranch string
}

// MergeOptions configures MergePullRequest invocations.
type MergeOptions struct {
	DeleteBranch bool
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// ViewPullRequest resolves the pull request associated with the current branch
// in the supplied working directory. A gh exit code other than zero signals
// that no pull request exists, which is reported as found=false without error.
func (client *Client) ViewPullRequest(executionContext context.Context, workingDirectory string) (PullRequestView, bool, error) {
	trimmedWorkingDirectory := strings.TrimSpace(workingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return PullRequestView{}, false, InvalidInputError{FieldName: workingDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			viewSubcommandConstant,
			jsonFlagConstant,
			pullRequestViewJSONFieldsConstant,
		},
		WorkingDirectory: trimmedWorkingDirectory,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		failedError := execshell.CommandFailedError{}
		if errors.As(executionError, &failedError) {
			return PullRequestView{}, false, nil
		}
		return PullRequestView{}, false, OperationError{Operation: viewPullRequestOperationNameConstant, Cause: executionError}
	}

	var response struct {
		Number int    `json:"number"`
		URL    string `json:"url"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return PullRequestView{}, false, ResponseDecodingError{Operation: viewPullRequestOperationNameConstant, Cause: decodingError}
	}

	return PullRequestView{Number: response.Number, URL: response.URL}, true, nil
}

// CreatePullRequest creates a pull request for the current branch using gh pr create --fill.
func (client *Client) CreatePullRequest(executionContext context.Context, workingDirectory string) error {
	trimmedWorkingDirectory := strings.TrimSpace(workingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return InvalidInputError{FieldName: workingDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			createSubcommandConstant,
			fillFlagConstant,
		},
		WorkingDirectory: trimmedWorkingDirectory,
	}

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	return nil
}

// MergePullRequest merges the pull request for the current branch using the merge strategy.
func (client *Client) MergePullRequest(executionContext context.Context, workingDirectory string, options MergeOptions) error {
	trimmedWorkingDirectory := strings.TrimSpace(workingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return InvalidInputError{FieldName: workingDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{
		pullRequestSubcommandConstant,
		mergeSubcommandConstant,
		mergeStrategyFlagConstant,
	}
	if options.DeleteBranch {
		commandArguments = append(commandArguments, deleteBranchFlagConstant)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedWorkingDirectory,
	}

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return OperationError{Operation: mergePullRequestOperationNameConstant, Cause: executionError}
	}

	return nil
}

// ResolveRepoMetadata retrieves canonical metadata for a repository using gh repo view.
func (client *Client) ResolveRepoMetadata(executionContext context.Context, repository string) (RepositoryMetadata, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return RepositoryMetadata{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			repoSubcommandConstant,
			viewSubcommandConstant,
			repositoryIdentifier,
			jsonFlagConstant,
			repoViewJSONFieldsConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryMetadata{}, OperationError{Operation: repositoryMetadataOperationNameConstant, Cause: executionError}
	}

	var response struct {
		NameWithOwner    string `json:"nameWithOwner"`
		DefaultBranchRef struct {
			Name string `json:"name"`
		} `json:"defaultBranchRef"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return RepositoryMetadata{}, ResponseDecodingError{Operation: repositoryMetadataOperationNameConstant, Cause: decodingError}
	}

	return RepositoryMetadata{
		NameWithOwner: response.NameWithOwner,
		DefaultBranch: response.DefaultBranchRef.Name,
	}, nil
}
