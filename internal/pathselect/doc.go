// Package pathselect compiles sparse-checkout glob patterns and decides which
// repository-relative file paths they select.
package pathselect
