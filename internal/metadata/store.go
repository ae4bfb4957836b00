package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/pathselect"
)

const (
	// DirectoryName is the per-clone directory holding git-partial state.
	DirectoryName = ".gitpartial"
	// FileName is the metadata document inside DirectoryName.
	FileName = "metadata.json"
	// LockFileName is the advisory lock guarding metadata updates.
	LockFileName = "metadata.lock"
	// DefaultLockTimeout bounds how long Update waits for the lock.
	DefaultLockTimeout = 5 * time.Second

	lockRetryDelayConstant                    = 50 * time.Millisecond
	directoryPermissionsConstant              = 0o755
	filePermissionsConstant                   = 0o644
	temporaryFilePatternConstant              = "metadata-*.json.tmp"
	jsonIndentConstant                        = "  "
	missingFieldTemplateConstant              = "missing required field %q"
	invalidPatternTemplateConstant            = "invalid pattern in %q: %w"
	decodeFailureTemplateConstant             = "decode: %w"
	lockAcquireFailureTemplateConstant        = "acquire metadata lock: %w"
	lockTimeoutTemplateConstant               = "timed out after %s waiting for metadata lock"
	mutationFailureTemplateConstant           = "update metadata: %w"
	absolutePathFailureTemplateConstant       = "resolve start directory: %w"
	logMessageLockAcquiredConstant            = "metadata lock acquired"
	logMessageLockReleaseFailedConstant       = "metadata lock release failed"
	logMessageMetadataUnchangedConstant       = "metadata unchanged"
	logMessageMetadataSavedConstant           = "metadata saved"
	logFieldRepositoryRootConstant            = "repository_root"
	logFieldLockPathConstant                  = "lock_path"
	logFieldPatternsConstant                  = "patterns"
	logFieldCommitConstant                    = "commit"
	partialCloneSearchSubjectTemplateConstant = "no %s found in %s or any parent directory"
)

// MutationFunc transforms loaded metadata. Returning false as the second value skips the write.
type MutationFunc func(current PartialCloneMetadata) (PartialCloneMetadata, bool, error)

// StoreOptions configures a Store.
type StoreOptions struct {
	Logger      *zap.Logger
	LockTimeout time.Duration
}

// Store performs serialized read-modify-write cycles on metadata documents.
type Store struct {
	logger      *zap.Logger
	lockTimeout time.Duration
}

type storedDocument struct {
	RemoteURL        *string   `json:"remote_url"`
	Paths            *[]string `json:"paths"`
	LastSyncedCommit *string   `json:"last_synced_commit"`
}

// NewStore constructs a Store, applying defaults for unset options.
func NewStore(options StoreOptions) *Store {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lockTimeout := options.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{logger: logger, lockTimeout: lockTimeout}
}

// FilePath returns the metadata document location for a clone root.
func FilePath(rootDirectory string) string {
	return filepath.Join(rootDirectory, DirectoryName, FileName)
}

// Load reads and validates the metadata document under rootDirectory.
func Load(rootDirectory string) (PartialCloneMetadata, error) {
	metadataPath := FilePath(rootDirectory)
	contents, readError := os.ReadFile(metadataPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return PartialCloneMetadata{}, failure.New(failure.KindNotAPartialClone, rootDirectory, readError)
		}
		return PartialCloneMetadata{}, failure.New(failure.KindIOFailure, metadataPath, readError)
	}

	var document storedDocument
	if decodeError := json.Unmarshal(contents, &document); decodeError != nil {
		return PartialCloneMetadata{}, failure.New(failure.KindCorruptMetadata, metadataPath, fmt.Errorf(decodeFailureTemplateConstant, decodeError))
	}

	switch {
	case document.RemoteURL == nil || len(strings.TrimSpace(*document.RemoteURL)) == 0:
		return PartialCloneMetadata{}, failure.New(failure.KindCorruptMetadata, metadataPath, fmt.Errorf(missingFieldTemplateConstant, remoteURLSubjectConstant))
	case document.Paths == nil || len(*document.Paths) == 0:
		return PartialCloneMetadata{}, failure.New(failure.KindCorruptMetadata, metadataPath, fmt.Errorf(missingFieldTemplateConstant, pathsSubjectConstant))
	case document.LastSyncedCommit == nil:
		return PartialCloneMetadata{}, failure.New(failure.KindCorruptMetadata, metadataPath, fmt.Errorf(missingFieldTemplateConstant, commitSubjectConstant))
	}

	if validationError := pathselect.Validate(*document.Paths); validationError != nil {
		return PartialCloneMetadata{}, failure.New(failure.KindCorruptMetadata, metadataPath, fmt.Errorf(invalidPatternTemplateConstant, pathsSubjectConstant, validationError))
	}

	return PartialCloneMetadata{
		RemoteURL:        *document.RemoteURL,
		Paths:            append([]string{}, (*document.Paths)...),
		LastSyncedCommit: *document.LastSyncedCommit,
	}, nil
}

// Save writes metadata atomically: the document is written to a temporary
// file next to the target and renamed over it, so readers never observe a
// partial document.
func Save(rootDirectory string, metadata PartialCloneMetadata) error {
	metadataDirectory := filepath.Join(rootDirectory, DirectoryName)
	if directoryError := os.MkdirAll(metadataDirectory, directoryPermissionsConstant); directoryError != nil {
		return failure.New(failure.KindIOFailure, metadataDirectory, directoryError)
	}

	encoded, encodeError := encode(metadata)
	if encodeError != nil {
		return failure.New(failure.KindIOFailure, metadataDirectory, encodeError)
	}

	temporaryFile, createError := os.CreateTemp(metadataDirectory, temporaryFilePatternConstant)
	if createError != nil {
		return failure.New(failure.KindIOFailure, metadataDirectory, createError)
	}
	temporaryPath := temporaryFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.Write(encoded); writeError != nil {
		_ = temporaryFile.Close()
		return failure.New(failure.KindIOFailure, temporaryPath, writeError)
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		_ = temporaryFile.Close()
		return failure.New(failure.KindIOFailure, temporaryPath, syncError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return failure.New(failure.KindIOFailure, temporaryPath, closeError)
	}
	if chmodError := os.Chmod(temporaryPath, filePermissionsConstant); chmodError != nil {
		return failure.New(failure.KindIOFailure, temporaryPath, chmodError)
	}

	metadataPath := FilePath(rootDirectory)
	if renameError := os.Rename(temporaryPath, metadataPath); renameError != nil {
		return failure.New(failure.KindIOFailure, metadataPath, renameError)
	}
	committed = true
	return nil
}

// LocateRoot walks upward from startDirectory to the nearest directory holding a metadata document.
func LocateRoot(startDirectory string) (string, error) {
	currentDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", failure.New(failure.KindIOFailure, startDirectory, fmt.Errorf(absolutePathFailureTemplateConstant, absoluteError))
	}

	for {
		fileInfo, statError := os.Stat(FilePath(currentDirectory))
		if statError == nil && fileInfo.Mode().IsRegular() {
			return currentDirectory, nil
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	searchDescription := fmt.Sprintf(partialCloneSearchSubjectTemplateConstant, filepath.Join(DirectoryName, FileName), startDirectory)
	return "", failure.New(failure.KindNotAPartialClone, searchDescription, nil)
}

// Update loads the metadata under an exclusive lock, applies mutate, and saves the result when it reports a change.
func (store *Store) Update(executionContext context.Context, rootDirectory string, mutate MutationFunc) (PartialCloneMetadata, error) {
	if _, precheckError := Load(rootDirectory); precheckError != nil {
		return PartialCloneMetadata{}, precheckError
	}

	lockPath := filepath.Join(rootDirectory, DirectoryName, LockFileName)
	fileLock := flock.New(lockPath)
	lockContext, cancelLock := context.WithTimeout(executionContext, store.lockTimeout)
	defer cancelLock()

	locked, lockError := fileLock.TryLockContext(lockContext, lockRetryDelayConstant)
	if lockError != nil {
		if errors.Is(lockError, context.DeadlineExceeded) {
			return PartialCloneMetadata{}, failure.New(failure.KindIOFailure, lockPath, fmt.Errorf(lockTimeoutTemplateConstant, store.lockTimeout))
		}
		return PartialCloneMetadata{}, failure.New(failure.KindIOFailure, lockPath, fmt.Errorf(lockAcquireFailureTemplateConstant, lockError))
	}
	if !locked {
		return PartialCloneMetadata{}, failure.New(failure.KindIOFailure, lockPath, fmt.Errorf(lockTimeoutTemplateConstant, store.lockTimeout))
	}
	defer func() {
		if unlockError := fileLock.Unlock(); unlockError != nil {
			store.logger.Warn(logMessageLockReleaseFailedConstant, zap.String(logFieldLockPathConstant, lockPath), zap.Error(unlockError))
		}
	}()
	store.logger.Debug(logMessageLockAcquiredConstant, zap.String(logFieldLockPathConstant, lockPath))

	current, loadError := Load(rootDirectory)
	if loadError != nil {
		return PartialCloneMetadata{}, loadError
	}

	updated, changed, mutationError := mutate(current)
	if mutationError != nil {
		return current, fmt.Errorf(mutationFailureTemplateConstant, mutationError)
	}
	if !changed {
		store.logger.Debug(logMessageMetadataUnchangedConstant, zap.String(logFieldRepositoryRootConstant, rootDirectory))
		return current, nil
	}

	if saveError := Save(rootDirectory, updated); saveError != nil {
		return current, saveError
	}
	store.logger.Info(logMessageMetadataSavedConstant,
		zap.String(logFieldRepositoryRootConstant, rootDirectory),
		zap.Strings(logFieldPatternsConstant, updated.Paths),
		zap.String(logFieldCommitConstant, updated.LastSyncedCommit),
	)
	return updated, nil
}

func encode(metadata PartialCloneMetadata) ([]byte, error) {
	document := metadata
	if document.Paths == nil {
		document.Paths = []string{}
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", jsonIndentConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return nil, encodeError
	}
	return buffer.Bytes(), nil
}
