// Package gitrepo exposes the git operations the GitHub provider relies on:
// revision lookup, default-branch resolution, diff capture, pushes, and
// clone maintenance. All commands run through execshell.
package gitrepo
