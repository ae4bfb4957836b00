// Package status reports the state of a partial clone: branch position
// relative to its remote-tracking branch, the recorded sparse-checkout
// patterns, and working-tree changes split by whether they fall inside
// those patterns. It never modifies the clone or its metadata.
package status
