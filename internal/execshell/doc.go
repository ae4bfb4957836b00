// Package execshell runs external commands for git-partial.
//
// ShellExecutor wraps a CommandRunner (OSCommandRunner by default), turns
// non-zero exit codes into CommandFailedError values that keep the captured
// standard error, and reports every command's lifecycle to a
// CommandEventObserver. CommandMessageFormatter renders those events as
// human-readable sentences.
package execshell
