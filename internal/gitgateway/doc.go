// Package gitgateway is the narrow interface git-partial uses to drive Git.
//
// Gateway lists the operations the commands need. CLIGateway implements it
// by running the git executable through an execshell executor and reports
// every failure as a GitOperationFailed error that keeps Git's standard
// error output.
package gitgateway
