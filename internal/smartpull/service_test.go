package smartpull_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/smartpull"
	"github.com/temirov/gitpartial/internal/testsupport"
)

const (
	testRemoteURLConstant       = "https://github.com/example/monorepo.git"
	testSyncedCommitConstant    = "0123456789abcdef0123456789abcdef01234567"
	testUpdatedCommitConstant   = "fedcba9876543210fedcba9876543210fedcba98"
	testBranchConstant          = "main"
	testUpstreamConstant        = "origin/main"
	testRemoteReferenceConstant = "refs/remotes/origin/main"
)

func seedPartialClone(testInstance *testing.T) string {
	testInstance.Helper()
	repositoryRoot := testInstance.TempDir()
	initial, creationError := metadata.New(testRemoteURLConstant, []string{"docs/**", "*.md"}, testSyncedCommitConstant)
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, metadata.Save(repositoryRoot, initial))
	return repositoryRoot
}

func newService(testInstance *testing.T, gateway *testsupport.GatewayStub, logger *zap.Logger) *smartpull.Service {
	testInstance.Helper()
	service, creationError := smartpull.NewService(smartpull.Dependencies{
		Gateway: gateway,
		Store:   metadata.NewStore(metadata.StoreOptions{Logger: logger}),
		Logger:  logger,
	})
	require.NoError(testInstance, creationError)
	return service
}

func requireMetadataUnchanged(testInstance *testing.T, repositoryRoot string) {
	testInstance.Helper()
	persisted, loadError := metadata.Load(repositoryRoot)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testSyncedCommitConstant, persisted.LastSyncedCommit)
	require.Equal(testInstance, []string{"docs/**", "*.md"}, persisted.Paths)
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, missingGatewayError := smartpull.NewService(smartpull.Dependencies{Store: metadata.NewStore(metadata.StoreOptions{})})
	require.ErrorIs(testInstance, missingGatewayError, smartpull.ErrGatewayNotConfigured)

	_, missingStoreError := smartpull.NewService(smartpull.Dependencies{Gateway: &testsupport.GatewayStub{}})
	require.ErrorIs(testInstance, missingStoreError, smartpull.ErrStoreNotConfigured)
}

func TestServicePullRecordsNewHead(testInstance *testing.T) {
	repositoryRoot := seedPartialClone(testInstance)
	gateway := &testsupport.GatewayStub{Branch: testBranchConstant, Head: testUpdatedCommitConstant, Ancestor: true}
	observedCore, observedLogs := observer.New(zap.InfoLevel)
	service := newService(testInstance, gateway, zap.New(observedCore))

	result, pullError := service.Pull(context.Background(), smartpull.Options{WorkingDirectory: repositoryRoot})
	require.NoError(testInstance, pullError)

	require.Equal(testInstance, []string{
		testsupport.OperationFetch,
		testsupport.OperationCurrentBranch,
		testsupport.OperationReferenceExists,
		testsupport.OperationIsAncestor,
		testsupport.OperationHeadCommit,
		testsupport.OperationMergeFastForward,
		testsupport.OperationHeadCommit,
	}, gateway.Operations())
	require.Equal(testInstance, []string{"origin"}, gateway.Calls[0].Arguments)
	require.Equal(testInstance, []string{testRemoteReferenceConstant}, gateway.Calls[2].Arguments)
	require.Equal(testInstance, []string{"HEAD", testUpstreamConstant}, gateway.Calls[3].Arguments)
	require.Equal(testInstance, []string{testUpstreamConstant}, gateway.Calls[5].Arguments)

	require.Equal(testInstance, testBranchConstant, result.Branch)
	require.Equal(testInstance, testUpstreamConstant, result.Upstream)
	require.Equal(testInstance, testUpdatedCommitConstant, result.Metadata.LastSyncedCommit)

	persisted, loadError := metadata.Load(repositoryRoot)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, metadata.PartialCloneMetadata{
		RemoteURL:        testRemoteURLConstant,
		Paths:            []string{"docs/**", "*.md"},
		LastSyncedCommit: testUpdatedCommitConstant,
	}, persisted)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("smart pull completed").Len())
}

func TestServicePullUsesConfiguredRemote(testInstance *testing.T) {
	repositoryRoot := seedPartialClone(testInstance)
	gateway := &testsupport.GatewayStub{Branch: "release", Head: testUpdatedCommitConstant, Ancestor: true}
	service := newService(testInstance, gateway, zap.NewNop())

	result, pullError := service.Pull(context.Background(), smartpull.Options{WorkingDirectory: repositoryRoot, Remote: " upstream "})
	require.NoError(testInstance, pullError)
	require.Equal(testInstance, "upstream/release", result.Upstream)
	require.Equal(testInstance, []string{"upstream"}, gateway.Calls[0].Arguments)
	require.Equal(testInstance, []string{"refs/remotes/upstream/release"}, gateway.Calls[2].Arguments)
}

func TestServicePullRejectsDivergedHistory(testInstance *testing.T) {
	repositoryRoot := seedPartialClone(testInstance)
	gateway := &testsupport.GatewayStub{Branch: testBranchConstant, Head: testUpdatedCommitConstant, Ancestor: false}
	observedCore, observedLogs := observer.New(zap.WarnLevel)
	service := newService(testInstance, gateway, zap.New(observedCore))

	_, pullError := service.Pull(context.Background(), smartpull.Options{WorkingDirectory: repositoryRoot})
	require.ErrorIs(testInstance, pullError, failure.ErrNonFastForward)
	require.ErrorIs(testInstance, pullError, smartpull.ErrDiverged)
	require.ErrorContains(testInstance, pullError, testUpstreamConstant)

	require.NotContains(testInstance, gateway.Operations(), testsupport.OperationMergeFastForward)
	requireMetadataUnchanged(testInstance, repositoryRoot)
	require.Equal(testInstance, 1, observedLogs.Len())
}

func TestServicePullFailuresLeaveMetadataUnchanged(testInstance *testing.T) {
	gitFailure := failure.New(failure.KindGitOperationFailed, "git", errors.New("fatal: simulated"))

	testCases := []struct {
		name          string
		gateway       *testsupport.GatewayStub
		expectedKind  error
		expectedCause error
		forbiddenOp   string
	}{
		{
			name:          "DetachedHead",
			gateway:       &testsupport.GatewayStub{Head: testUpdatedCommitConstant, Ancestor: true},
			expectedKind:  failure.ErrGitOperationFailed,
			expectedCause: smartpull.ErrDetachedHead,
			forbiddenOp:   testsupport.OperationMergeFastForward,
		},
		{
			name:          "MissingUpstream",
			gateway:       &testsupport.GatewayStub{Branch: testBranchConstant, Head: testUpdatedCommitConstant, Ancestor: true, MissingReference: true},
			expectedKind:  failure.ErrGitOperationFailed,
			expectedCause: smartpull.ErrUpstreamMissing,
			forbiddenOp:   testsupport.OperationIsAncestor,
		},
		{
			name: "FetchFails",
			gateway: &testsupport.GatewayStub{
				Branch: testBranchConstant, Head: testUpdatedCommitConstant, Ancestor: true,
				Errors: map[string]error{testsupport.OperationFetch: gitFailure},
			},
			expectedKind: failure.ErrGitOperationFailed,
			forbiddenOp:  testsupport.OperationCurrentBranch,
		},
		{
			name: "AncestryCheckFails",
			gateway: &testsupport.GatewayStub{
				Branch: testBranchConstant, Head: testUpdatedCommitConstant,
				Errors: map[string]error{testsupport.OperationIsAncestor: gitFailure},
			},
			expectedKind: failure.ErrGitOperationFailed,
			forbiddenOp:  testsupport.OperationMergeFastForward,
		},
		{
			name: "MergeFails",
			gateway: &testsupport.GatewayStub{
				Branch: testBranchConstant, Head: testUpdatedCommitConstant, Ancestor: true,
				Errors: map[string]error{testsupport.OperationMergeFastForward: gitFailure},
			},
			expectedKind: failure.ErrGitOperationFailed,
		},
		{
			name:         "MalformedHead",
			gateway:      &testsupport.GatewayStub{Branch: testBranchConstant, Head: "not-a-commit", Ancestor: true},
			expectedKind: failure.ErrInvalidArgument,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryRoot := seedPartialClone(testInstance)
			service := newService(testInstance, testCase.gateway, zap.NewNop())

			_, pullError := service.Pull(context.Background(), smartpull.Options{WorkingDirectory: repositoryRoot})
			require.ErrorIs(testInstance, pullError, testCase.expectedKind)
			if testCase.expectedCause != nil {
				require.ErrorIs(testInstance, pullError, testCase.expectedCause)
			}
			if len(testCase.forbiddenOp) > 0 {
				require.NotContains(testInstance, testCase.gateway.Operations(), testCase.forbiddenOp)
			}
			requireMetadataUnchanged(testInstance, repositoryRoot)
		})
	}
}

func TestServicePullRequiresPartialClone(testInstance *testing.T) {
	gateway := &testsupport.GatewayStub{Branch: testBranchConstant, Ancestor: true}
	service := newService(testInstance, gateway, zap.NewNop())

	_, pullError := service.Pull(context.Background(), smartpull.Options{WorkingDirectory: testInstance.TempDir()})
	require.ErrorIs(testInstance, pullError, failure.ErrNotAPartialClone)
	require.Empty(testInstance, gateway.Calls)
}
