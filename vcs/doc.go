// Package vcs defines the version-control provider contract and the registry
// hosts use to discover providers. Providers register themselves from their
// package init, so importing a provider package for side effects is enough:
//
//	import _ "github.com/sase-run/sase-github/vcs/github"
package vcs
