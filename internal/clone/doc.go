// Package clone implements the clone command: a filtered, sparse clone of a
// remote restricted to a set of path patterns, followed by the initial
// metadata document.
package clone
