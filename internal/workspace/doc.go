// Package workspace manages project files, workspace claims, numbered clones,
// and reference resolution for GitHub-hosted projects. Project state lives in
// `.gp` documents under ~/.sase/projects; claims are serialized with a file
// lock so concurrent workflows never share a workspace.
package workspace
