// Package failure defines the typed errors surfaced by git-partial commands.
//
// Every failure carries a Kind naming the error category, an optional
// subject (the offending pattern, path, or git subcommand), and an optional
// cause. Sentinel values per kind allow callers to classify wrapped errors
// with errors.Is.
package failure
