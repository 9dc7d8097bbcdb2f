// Package steps assembles the workflow step commands invoked by the shipped
// xprompt documents. Every command prints key=value lines on standard output
// for the host's workflow executor; failures that the executor is expected to
// handle are reported through an error key rather than a non-zero exit.
package steps
