// Package dependencies resolves the collaborators shared by the git-partial
// commands, returning injected instances when present and production
// defaults otherwise.
package dependencies
