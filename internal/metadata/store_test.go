package metadata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/metadata"
)

const (
	expectedDocumentConstant = `{
  "remote_url": "https://github.com/example/project.git?ref=a&b",
  "paths": [
    "docs/**",
    "*.md"
  ],
  "last_synced_commit": "0123456789abcdef0123456789abcdef01234567"
}
`
)

func writeMetadataDocument(testInstance *testing.T, rootDirectory string, contents string) {
	testInstance.Helper()
	metadataDirectory := filepath.Join(rootDirectory, metadata.DirectoryName)
	require.NoError(testInstance, os.MkdirAll(metadataDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(metadata.FilePath(rootDirectory), []byte(contents), 0o644))
}

func sampleMetadata() metadata.PartialCloneMetadata {
	return metadata.PartialCloneMetadata{
		RemoteURL:        testRemoteURLConstant,
		Paths:            []string{"src/frontend/**", "*.md"},
		LastSyncedCommit: testInitialCommitConstant,
	}
}

func TestSaveThenLoadRoundTrips(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	original := sampleMetadata()

	require.NoError(testInstance, metadata.Save(rootDirectory, original))

	loaded, loadError := metadata.Load(rootDirectory)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, original, loaded)
}

func TestSaveProducesDeterministicDocument(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	document := metadata.PartialCloneMetadata{
		RemoteURL:        "https://github.com/example/project.git?ref=a&b",
		Paths:            []string{"docs/**", "*.md"},
		LastSyncedCommit: testInitialCommitConstant,
	}

	require.NoError(testInstance, metadata.Save(rootDirectory, document))
	firstContents, firstReadError := os.ReadFile(metadata.FilePath(rootDirectory))
	require.NoError(testInstance, firstReadError)
	require.Equal(testInstance, expectedDocumentConstant, string(firstContents))

	require.NoError(testInstance, metadata.Save(rootDirectory, document))
	secondContents, secondReadError := os.ReadFile(metadata.FilePath(rootDirectory))
	require.NoError(testInstance, secondReadError)
	require.Equal(testInstance, firstContents, secondContents)
}

func TestSaveLeavesNoTemporaryFiles(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, metadata.Save(rootDirectory, sampleMetadata()))
	require.NoError(testInstance, metadata.Save(rootDirectory, sampleMetadata()))

	entries, readError := os.ReadDir(filepath.Join(rootDirectory, metadata.DirectoryName))
	require.NoError(testInstance, readError)
	require.Len(testInstance, entries, 1)
	require.Equal(testInstance, metadata.FileName, entries[0].Name())
}

func TestSaveReportsFilesystemFailure(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, metadata.DirectoryName), []byte("not a directory"), 0o644))

	saveError := metadata.Save(rootDirectory, sampleMetadata())
	require.ErrorIs(testInstance, saveError, failure.ErrIOFailure)
}

func TestLoadClassifiesDocuments(testInstance *testing.T) {
	testCases := []struct {
		name         string
		contents     string
		expectedKind error
	}{
		{name: "MalformedJSON", contents: "{not json", expectedKind: failure.ErrCorruptMetadata},
		{name: "MissingRemoteURL", contents: `{"paths":["docs/**"],"last_synced_commit":"` + testInitialCommitConstant + `"}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "EmptyRemoteURL", contents: `{"remote_url":"","paths":["docs/**"],"last_synced_commit":"` + testInitialCommitConstant + `"}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "MissingPaths", contents: `{"remote_url":"x","last_synced_commit":"` + testInitialCommitConstant + `"}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "EmptyPaths", contents: `{"remote_url":"x","paths":[],"last_synced_commit":"` + testInitialCommitConstant + `"}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "PathsWrongType", contents: `{"remote_url":"x","paths":"docs/**","last_synced_commit":"` + testInitialCommitConstant + `"}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "MalformedStoredPattern", contents: `{"remote_url":"x","paths":["src/["],"last_synced_commit":"` + testInitialCommitConstant + `"}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "MissingCommit", contents: `{"remote_url":"x","paths":["docs/**"]}`, expectedKind: failure.ErrCorruptMetadata},
		{name: "NullCommit", contents: `{"remote_url":"x","paths":["docs/**"],"last_synced_commit":null}`, expectedKind: failure.ErrCorruptMetadata},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			rootDirectory := testInstance.TempDir()
			writeMetadataDocument(testInstance, rootDirectory, testCase.contents)

			_, loadError := metadata.Load(rootDirectory)
			require.ErrorIs(testInstance, loadError, testCase.expectedKind)
		})
	}
}

func TestLoadWithoutDocumentIsNotAPartialClone(testInstance *testing.T) {
	_, loadError := metadata.Load(testInstance.TempDir())
	require.ErrorIs(testInstance, loadError, failure.ErrNotAPartialClone)
}

func TestLoadIgnoresUnknownFields(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	writeMetadataDocument(testInstance, rootDirectory, `{"remote_url":"x","paths":["docs/**"],"last_synced_commit":"`+testInitialCommitConstant+`","created_by":"other-tool","version":3}`)

	loaded, loadError := metadata.Load(rootDirectory)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"docs/**"}, loaded.Paths)
}

func TestLocateRootFindsAncestor(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, metadata.Save(rootDirectory, sampleMetadata()))
	nestedDirectory := filepath.Join(rootDirectory, "src", "frontend", "components")
	require.NoError(testInstance, os.MkdirAll(nestedDirectory, 0o755))

	locatedRoot, locateError := metadata.LocateRoot(nestedDirectory)
	require.NoError(testInstance, locateError)

	expectedRoot, evalError := filepath.EvalSymlinks(rootDirectory)
	require.NoError(testInstance, evalError)
	actualRoot, actualEvalError := filepath.EvalSymlinks(locatedRoot)
	require.NoError(testInstance, actualEvalError)
	require.Equal(testInstance, expectedRoot, actualRoot)
}

func TestLocateRootWithoutDocumentFails(testInstance *testing.T) {
	_, locateError := metadata.LocateRoot(testInstance.TempDir())
	require.ErrorIs(testInstance, locateError, failure.ErrNotAPartialClone)
}

func TestStoreUpdatePersistsChanges(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, metadata.Save(rootDirectory, sampleMetadata()))

	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	store := metadata.NewStore(metadata.StoreOptions{Logger: zap.New(observerCore)})

	updated, updateError := store.Update(context.Background(), rootDirectory, func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		return metadata.AddPaths(current, []string{"docs/**"})
	})
	require.NoError(testInstance, updateError)
	require.Equal(testInstance, []string{"src/frontend/**", "*.md", "docs/**"}, updated.Paths)

	loaded, loadError := metadata.Load(rootDirectory)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, updated, loaded)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("metadata saved").Len())
}

func TestStoreUpdateSkipsUnchangedDocument(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, metadata.Save(rootDirectory, sampleMetadata()))
	metadataPath := metadata.FilePath(rootDirectory)
	pastTime := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(testInstance, os.Chtimes(metadataPath, pastTime, pastTime))

	store := metadata.NewStore(metadata.StoreOptions{})
	_, updateError := store.Update(context.Background(), rootDirectory, func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		return metadata.AddPaths(current, []string{"*.md"})
	})
	require.NoError(testInstance, updateError)

	fileInfo, statError := os.Stat(metadataPath)
	require.NoError(testInstance, statError)
	require.True(testInstance, fileInfo.ModTime().Equal(pastTime))
}

func TestStoreUpdateKeepsDocumentWhenMutationFails(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	original := sampleMetadata()
	require.NoError(testInstance, metadata.Save(rootDirectory, original))

	mutationFailure := failure.New(failure.KindNonFastForward, "main", nil)
	store := metadata.NewStore(metadata.StoreOptions{})
	_, updateError := store.Update(context.Background(), rootDirectory, func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		return current, false, mutationFailure
	})
	require.ErrorIs(testInstance, updateError, failure.ErrNonFastForward)
	require.True(testInstance, errors.Is(updateError, mutationFailure))

	loaded, loadError := metadata.Load(rootDirectory)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, original, loaded)
}

func TestStoreUpdateRequiresPartialClone(testInstance *testing.T) {
	store := metadata.NewStore(metadata.StoreOptions{})
	mutationCalled := false
	_, updateError := store.Update(context.Background(), testInstance.TempDir(), func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		mutationCalled = true
		return current, true, nil
	})
	require.ErrorIs(testInstance, updateError, failure.ErrNotAPartialClone)
	require.False(testInstance, mutationCalled)
}

func TestStoreUpdateTimesOutWhileLockHeld(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, metadata.Save(rootDirectory, sampleMetadata()))

	heldLock := flock.New(filepath.Join(rootDirectory, metadata.DirectoryName, metadata.LockFileName))
	require.NoError(testInstance, heldLock.Lock())
	defer func() {
		_ = heldLock.Unlock()
	}()

	store := metadata.NewStore(metadata.StoreOptions{LockTimeout: 150 * time.Millisecond})
	mutationCalled := false
	_, updateError := store.Update(context.Background(), rootDirectory, func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		mutationCalled = true
		return current, true, nil
	})
	require.ErrorIs(testInstance, updateError, failure.ErrIOFailure)
	require.False(testInstance, mutationCalled)
}
