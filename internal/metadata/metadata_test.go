package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/metadata"
)

const (
	testRemoteURLConstant     = "https://github.com/example/project.git"
	testInitialCommitConstant = "0123456789abcdef0123456789abcdef01234567"
	testUpdatedCommitConstant = "89abcdef0123456789abcdef0123456789abcdef"
	testSHA256CommitConstant  = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)

func TestNewBuildsInitialMetadata(testInstance *testing.T) {
	initial, creationError := metadata.New(testRemoteURLConstant, []string{"docs/**", "*.md", "docs/**"}, testInitialCommitConstant)
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, metadata.PartialCloneMetadata{
		RemoteURL:        testRemoteURLConstant,
		Paths:            []string{"docs/**", "*.md"},
		LastSyncedCommit: testInitialCommitConstant,
	}, initial)
}

func TestNewRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name         string
		remoteURL    string
		patterns     []string
		commit       string
		expectedKind error
	}{
		{name: "MissingRemote", remoteURL: " ", patterns: []string{"docs/**"}, commit: testInitialCommitConstant, expectedKind: failure.ErrInvalidArgument},
		{name: "NoPatterns", remoteURL: testRemoteURLConstant, patterns: nil, commit: testInitialCommitConstant, expectedKind: failure.ErrInvalidArgument},
		{name: "MalformedPattern", remoteURL: testRemoteURLConstant, patterns: []string{"src/[x"}, commit: testInitialCommitConstant, expectedKind: failure.ErrPatternSyntax},
		{name: "ShortCommit", remoteURL: testRemoteURLConstant, patterns: []string{"docs/**"}, commit: "abc123", expectedKind: failure.ErrInvalidArgument},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, creationError := metadata.New(testCase.remoteURL, testCase.patterns, testCase.commit)
			require.ErrorIs(testInstance, creationError, testCase.expectedKind)
		})
	}
}

func TestAddPathsMergesPreservingOrder(testInstance *testing.T) {
	existing := metadata.PartialCloneMetadata{RemoteURL: testRemoteURLConstant, Paths: []string{"src/frontend/**"}, LastSyncedCommit: testInitialCommitConstant}

	updated, changed, mergeError := metadata.AddPaths(existing, []string{"docs/**", "src/frontend/**", "*.md"})
	require.NoError(testInstance, mergeError)
	require.True(testInstance, changed)
	require.Equal(testInstance, []string{"src/frontend/**", "docs/**", "*.md"}, updated.Paths)
	require.Equal(testInstance, existing.RemoteURL, updated.RemoteURL)
	require.Equal(testInstance, existing.LastSyncedCommit, updated.LastSyncedCommit)
	require.Equal(testInstance, []string{"src/frontend/**"}, existing.Paths)
}

func TestAddPathsIsIdempotent(testInstance *testing.T) {
	existing := metadata.PartialCloneMetadata{RemoteURL: testRemoteURLConstant, Paths: []string{"src/**"}, LastSyncedCommit: testInitialCommitConstant}

	once, firstChanged, firstError := metadata.AddPaths(existing, []string{"docs/**"})
	require.NoError(testInstance, firstError)
	require.True(testInstance, firstChanged)

	twice, secondChanged, secondError := metadata.AddPaths(once, []string{"docs/**"})
	require.NoError(testInstance, secondError)
	require.False(testInstance, secondChanged)
	require.True(testInstance, once.Equal(twice))
	require.Equal(testInstance, []string{"src/**", "docs/**"}, twice.Paths)
}

func TestAddPathsIsAllOrNothing(testInstance *testing.T) {
	existing := metadata.PartialCloneMetadata{RemoteURL: testRemoteURLConstant, Paths: []string{"src/**"}, LastSyncedCommit: testInitialCommitConstant}

	unchanged, changed, mergeError := metadata.AddPaths(existing, []string{"docs/**", "lib/[", "*.md"})
	require.ErrorIs(testInstance, mergeError, failure.ErrPatternSyntax)
	require.ErrorContains(testInstance, mergeError, "lib/[")
	require.False(testInstance, changed)
	require.True(testInstance, existing.Equal(unchanged))
}

func TestAddPathsRejectsEmptyInput(testInstance *testing.T) {
	_, _, mergeError := metadata.AddPaths(metadata.PartialCloneMetadata{}, nil)
	require.ErrorIs(testInstance, mergeError, failure.ErrInvalidArgument)
	require.ErrorIs(testInstance, mergeError, metadata.ErrPatternsRequired)
}

func TestRecordSyncReplacesCommit(testInstance *testing.T) {
	existing := metadata.PartialCloneMetadata{RemoteURL: testRemoteURLConstant, Paths: []string{"src/**"}, LastSyncedCommit: testInitialCommitConstant}

	updated, recordError := metadata.RecordSync(existing, testUpdatedCommitConstant)
	require.NoError(testInstance, recordError)
	require.Equal(testInstance, testUpdatedCommitConstant, updated.LastSyncedCommit)
	require.Equal(testInstance, existing.Paths, updated.Paths)
	require.Equal(testInstance, testInitialCommitConstant, existing.LastSyncedCommit)
}

func TestRecordSyncAcceptsFullObjectNames(testInstance *testing.T) {
	existing := metadata.PartialCloneMetadata{RemoteURL: testRemoteURLConstant, Paths: []string{"src/**"}, LastSyncedCommit: testInitialCommitConstant}

	testCases := []struct {
		name   string
		commit string
	}{
		{name: "SHA1", commit: testUpdatedCommitConstant},
		{name: "SHA256", commit: testSHA256CommitConstant},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			updated, recordError := metadata.RecordSync(existing, testCase.commit)
			require.NoError(testInstance, recordError)
			require.Equal(testInstance, testCase.commit, updated.LastSyncedCommit)
		})
	}

	initial, creationError := metadata.New(testRemoteURLConstant, []string{"docs/**"}, testSHA256CommitConstant)
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, testSHA256CommitConstant, initial.LastSyncedCommit)
}

func TestRecordSyncRejectsInvalidCommits(testInstance *testing.T) {
	existing := metadata.PartialCloneMetadata{RemoteURL: testRemoteURLConstant, Paths: []string{"src/**"}, LastSyncedCommit: testInitialCommitConstant}

	testCases := []struct {
		name          string
		commit        string
		expectedCause error
	}{
		{name: "Empty", commit: "", expectedCause: metadata.ErrCommitRequired},
		{name: "Whitespace", commit: "   ", expectedCause: metadata.ErrCommitRequired},
		{name: "Abbreviated", commit: "0123456", expectedCause: metadata.ErrCommitMalformed},
		{name: "NotHex", commit: "zz23456789abcdef0123456789abcdef01234567", expectedCause: metadata.ErrCommitMalformed},
		{name: "OneTooLong", commit: testInitialCommitConstant + "8", expectedCause: metadata.ErrCommitMalformed},
		{name: "SHA256OneTooShort", commit: testSHA256CommitConstant[1:], expectedCause: metadata.ErrCommitMalformed},
		{name: "SHA256NotHex", commit: "g" + testSHA256CommitConstant[1:], expectedCause: metadata.ErrCommitMalformed},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			unchanged, recordError := metadata.RecordSync(existing, testCase.commit)
			require.ErrorIs(testInstance, recordError, failure.ErrInvalidArgument)
			require.ErrorIs(testInstance, recordError, testCase.expectedCause)
			require.True(testInstance, existing.Equal(unchanged))
		})
	}
}
