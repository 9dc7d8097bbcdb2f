package vcs

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sase-run/sase-github/internal/execshell"
)

// CommandExecutor is the subprocess surface providers build on.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies carries everything a provider factory needs. Hosts populate
// the executor and logger; the filesystem and home directory default to the
// operating system when left empty.
type Dependencies struct {
	Logger                *zap.Logger
	Executor              CommandExecutor
	FileSystem            afero.Fs
	HomeDirectory         string
	ConfigurationFilePath string
}

// SubmitRequest identifies the changespec a submission applies to.
type SubmitRequest struct {
	ChangeSpecName  string
	ProjectBasename string
}

// Provider exposes version-control operations for one hosting service.
type Provider interface {
	// Name returns the registry identifier of the provider.
	Name() string
	// ChangeURL resolves the review URL for the change in the supplied
	// directory. Absence of a change is reported as an empty URL, not an error.
	ChangeURL(executionContext context.Context, workingDirectory string) (string, error)
	// ChangeNumber resolves the review number for the change in the supplied
	// directory. Absence of a change is reported as an empty number.
	ChangeNumber(executionContext context.Context, workingDirectory string) (string, error)
	// Mail publishes the revision for review, creating the review container
	// when none exists yet.
	Mail(executionContext context.Context, revision string, workingDirectory string) error
	// Submit lands the change identified by the request.
	Submit(executionContext context.Context, request SubmitRequest) error
}

// Factory builds a provider from host-supplied dependencies.
type Factory func(dependencies Dependencies) (Provider, error)
