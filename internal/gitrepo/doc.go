// Package gitrepo describes Git remote locations.
//
// DescribeRemote validates a remote string with go-git's endpoint parser and
// reports its protocol, host, owner, and repository name for display.
package gitrepo
