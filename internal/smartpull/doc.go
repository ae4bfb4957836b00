// Package smartpull implements smart-pull: fetch the remote, fast-forward the
// current branch when that is possible without rewriting local history, and
// record the new HEAD as the last synced commit.
package smartpull
