// Package metadata persists the state of a git-partial clone.
//
// The document lives at .gitpartial/metadata.json under the clone root and
// records the origin URL, the sparse-checkout patterns in insertion order,
// and the last commit reached by a fast-forward sync. Writes go through a
// temporary file and a rename; Store.Update additionally serializes
// read-modify-write cycles with an advisory file lock.
package metadata
