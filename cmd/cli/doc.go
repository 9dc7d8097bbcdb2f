// Package cli constructs the sase-github command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives. The subcommands are the workflow steps the shipped xprompt
// documents invoke; each prints key=value lines for the host's workflow
// executor.
package cli
