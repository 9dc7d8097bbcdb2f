// Package githubcli wraps the GitHub CLI (gh) behind a typed client used by
// the GitHub VCS provider. The gh executable defines the external contract;
// this package only shapes arguments and decodes JSON responses.
package githubcli
