// Package addpaths implements the add-paths command, which extends the
// sparse-checkout pattern set of an existing partial clone and records the
// merged set once git has materialized the new files.
package addpaths
