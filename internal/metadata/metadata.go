package metadata

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/pathselect"
)

const (
	remoteURLSubjectConstant         = "remote_url"
	pathsSubjectConstant             = "paths"
	commitSubjectConstant            = "last_synced_commit"
	remoteURLRequiredMessageConstant = "remote URL must be provided"
	patternsRequiredMessageConstant  = "at least one path pattern must be provided"
	commitRequiredMessageConstant    = "commit must be provided"
	commitMalformedMessageConstant   = "commit must be a full hexadecimal object name"
	sha1HexLengthConstant            = 40
	sha256HexLengthConstant          = 64
)

// ErrRemoteURLRequired indicates the remote URL was empty.
var ErrRemoteURLRequired = errors.New(remoteURLRequiredMessageConstant)

// ErrPatternsRequired indicates an empty pattern list.
var ErrPatternsRequired = errors.New(patternsRequiredMessageConstant)

// ErrCommitRequired indicates an empty commit identifier.
var ErrCommitRequired = errors.New(commitRequiredMessageConstant)

// ErrCommitMalformed indicates a commit identifier that is not a full object name.
var ErrCommitMalformed = errors.New(commitMalformedMessageConstant)

// PartialCloneMetadata is the persisted state of a partial clone.
type PartialCloneMetadata struct {
	RemoteURL        string   `json:"remote_url"`
	Paths            []string `json:"paths"`
	LastSyncedCommit string   `json:"last_synced_commit"`
}

// New builds the initial metadata recorded after a clone.
func New(remoteURL string, patterns []string, commitSHA string) (PartialCloneMetadata, error) {
	trimmedRemoteURL := strings.TrimSpace(remoteURL)
	if len(trimmedRemoteURL) == 0 {
		return PartialCloneMetadata{}, failure.New(failure.KindInvalidArgument, remoteURLSubjectConstant, ErrRemoteURLRequired)
	}

	initial, _, mergeError := AddPaths(PartialCloneMetadata{RemoteURL: trimmedRemoteURL}, patterns)
	if mergeError != nil {
		return PartialCloneMetadata{}, mergeError
	}

	return RecordSync(initial, commitSHA)
}

// AddPaths merges newPatterns into the existing pattern list.
//
// Duplicates are dropped by exact string comparison and first-seen order is
// kept. Every new pattern is validated before anything is merged, so a single
// malformed pattern leaves the result untouched. The boolean reports whether
// the pattern list grew.
func AddPaths(existing PartialCloneMetadata, newPatterns []string) (PartialCloneMetadata, bool, error) {
	if len(newPatterns) == 0 {
		return existing, false, failure.New(failure.KindInvalidArgument, pathsSubjectConstant, ErrPatternsRequired)
	}
	if validationError := pathselect.Validate(newPatterns); validationError != nil {
		return existing, false, validationError
	}

	knownPatterns := make(map[string]struct{}, len(existing.Paths)+len(newPatterns))
	mergedPatterns := make([]string, 0, len(existing.Paths)+len(newPatterns))
	for _, pattern := range existing.Paths {
		if _, seen := knownPatterns[pattern]; seen {
			continue
		}
		knownPatterns[pattern] = struct{}{}
		mergedPatterns = append(mergedPatterns, pattern)
	}

	changed := false
	for _, pattern := range newPatterns {
		if _, seen := knownPatterns[pattern]; seen {
			continue
		}
		knownPatterns[pattern] = struct{}{}
		mergedPatterns = append(mergedPatterns, pattern)
		changed = true
	}

	updated := existing
	updated.Paths = mergedPatterns
	return updated, changed, nil
}

// RecordSync returns a copy of existing with the last synced commit replaced.
func RecordSync(existing PartialCloneMetadata, commitSHA string) (PartialCloneMetadata, error) {
	trimmedCommit := strings.TrimSpace(commitSHA)
	if len(trimmedCommit) == 0 {
		return existing, failure.New(failure.KindInvalidArgument, commitSubjectConstant, ErrCommitRequired)
	}
	if !isObjectName(trimmedCommit) {
		return existing, failure.New(failure.KindInvalidArgument, trimmedCommit, ErrCommitMalformed)
	}

	updated := existing
	updated.Paths = append([]string{}, existing.Paths...)
	updated.LastSyncedCommit = trimmedCommit
	return updated, nil
}

// isObjectName accepts full SHA-1 and SHA-256 object names.
func isObjectName(candidate string) bool {
	if len(candidate) != sha1HexLengthConstant && len(candidate) != sha256HexLengthConstant {
		return false
	}
	_, decodeError := hex.DecodeString(candidate)
	return decodeError == nil
}

// Equal reports whether two metadata values describe the same state.
func (metadata PartialCloneMetadata) Equal(other PartialCloneMetadata) bool {
	if metadata.RemoteURL != other.RemoteURL || metadata.LastSyncedCommit != other.LastSyncedCommit {
		return false
	}
	if len(metadata.Paths) != len(other.Paths) {
		return false
	}
	for patternIndex := range metadata.Paths {
		if metadata.Paths[patternIndex] != other.Paths[patternIndex] {
			return false
		}
	}
	return true
}
