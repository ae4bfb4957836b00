package testsupport

import (
	"context"

	"github.com/temirov/gitpartial/internal/gitgateway"
)

// Gateway operation names recorded by GatewayStub.
const (
	OperationCloneSparse       = "CloneSparse"
	OperationSetSparsePatterns = "SetSparsePatterns"
	OperationFetch             = "Fetch"
	OperationIsAncestor        = "IsAncestor"
	OperationMergeFastForward  = "MergeFastForward"
	OperationCurrentBranch     = "CurrentBranch"
	OperationHeadCommit        = "HeadCommit"
	OperationAheadBehind       = "AheadBehind"
	OperationShortStatus       = "ShortStatus"
	OperationReferenceExists   = "ReferenceExists"
)

// GatewayCall records a single gateway invocation.
type GatewayCall struct {
	Operation      string
	RepositoryRoot string
	Arguments      []string
}

// GatewayStub implements gitgateway.Gateway with canned answers.
type GatewayStub struct {
	Calls            []GatewayCall
	Errors           map[string]error
	Branch           string
	Head             string
	Ancestor         bool
	Divergence       gitgateway.AheadBehind
	StatusLines      []string
	MissingReference bool
}

// Operations lists the recorded operation names in call order.
func (gateway *GatewayStub) Operations() []string {
	operations := make([]string, 0, len(gateway.Calls))
	for _, call := range gateway.Calls {
		operations = append(operations, call.Operation)
	}
	return operations
}

// CloneSparse records the clone request.
func (gateway *GatewayStub) CloneSparse(_ context.Context, remoteURL string, destination string, filter string) error {
	return gateway.record(OperationCloneSparse, destination, remoteURL, filter)
}

// SetSparsePatterns records the requested pattern set.
func (gateway *GatewayStub) SetSparsePatterns(_ context.Context, repositoryRoot string, patterns []string) error {
	return gateway.record(OperationSetSparsePatterns, repositoryRoot, patterns...)
}

// Fetch records the fetch request.
func (gateway *GatewayStub) Fetch(_ context.Context, repositoryRoot string, remoteName string) error {
	return gateway.record(OperationFetch, repositoryRoot, remoteName)
}

// IsAncestor returns the configured ancestry answer.
func (gateway *GatewayStub) IsAncestor(_ context.Context, repositoryRoot string, ancestor string, descendant string) (bool, error) {
	if recordError := gateway.record(OperationIsAncestor, repositoryRoot, ancestor, descendant); recordError != nil {
		return false, recordError
	}
	return gateway.Ancestor, nil
}

// MergeFastForward records the merge request.
func (gateway *GatewayStub) MergeFastForward(_ context.Context, repositoryRoot string, reference string) error {
	return gateway.record(OperationMergeFastForward, repositoryRoot, reference)
}

// CurrentBranch returns the configured branch.
func (gateway *GatewayStub) CurrentBranch(_ context.Context, repositoryRoot string) (string, error) {
	if recordError := gateway.record(OperationCurrentBranch, repositoryRoot); recordError != nil {
		return "", recordError
	}
	return gateway.Branch, nil
}

// HeadCommit returns the configured HEAD.
func (gateway *GatewayStub) HeadCommit(_ context.Context, repositoryRoot string) (string, error) {
	if recordError := gateway.record(OperationHeadCommit, repositoryRoot); recordError != nil {
		return "", recordError
	}
	return gateway.Head, nil
}

// AheadBehind returns the configured divergence.
func (gateway *GatewayStub) AheadBehind(_ context.Context, repositoryRoot string, local string, upstream string) (gitgateway.AheadBehind, error) {
	if recordError := gateway.record(OperationAheadBehind, repositoryRoot, local, upstream); recordError != nil {
		return gitgateway.AheadBehind{}, recordError
	}
	return gateway.Divergence, nil
}

// ShortStatus returns the configured status lines.
func (gateway *GatewayStub) ShortStatus(_ context.Context, repositoryRoot string) ([]string, error) {
	if recordError := gateway.record(OperationShortStatus, repositoryRoot); recordError != nil {
		return nil, recordError
	}
	return append([]string{}, gateway.StatusLines...), nil
}

// ReferenceExists reports the reference as present unless MissingReference is set.
func (gateway *GatewayStub) ReferenceExists(_ context.Context, repositoryRoot string, reference string) (bool, error) {
	if recordError := gateway.record(OperationReferenceExists, repositoryRoot, reference); recordError != nil {
		return false, recordError
	}
	return !gateway.MissingReference, nil
}

func (gateway *GatewayStub) record(operation string, repositoryRoot string, arguments ...string) error {
	gateway.Calls = append(gateway.Calls, GatewayCall{
		Operation:      operation,
		RepositoryRoot: repositoryRoot,
		Arguments:      append([]string{}, arguments...),
	})
	if gateway.Errors == nil {
		return nil
	}
	return gateway.Errors[operation]
}
