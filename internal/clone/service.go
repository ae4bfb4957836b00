package clone

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/gitrepo"
	"github.com/temirov/gitpartial/internal/metadata"
)

const (
	gatewayMissingMessageConstant           = "git gateway not configured"
	destinationRequiredMessageConstant      = "destination must be provided"
	destinationNotDirectoryMessageConstant  = "destination exists and is not a directory"
	destinationNotEmptyMessageConstant      = "destination exists and is not empty"
	destinationSubjectConstant              = "destination"
	cloneFailureTemplateConstant            = "unable to clone repository: %w"
	sparseConfigurationFailureTemplate      = "unable to configure sparse checkout: %w"
	headResolutionFailureTemplateConstant   = "unable to resolve HEAD after clone: %w"
	metadataCreationFailureTemplateConstant = "unable to record clone metadata: %w"
	cloneStartedMessageConstant             = "cloning partial repository"
	cloneCompletedMessageConstant           = "partial clone created"
	logFieldRemoteConstant                  = "remote"
	logFieldDestinationConstant             = "destination"
	logFieldPatternsConstant                = "patterns"
	logFieldFilterConstant                  = "filter"
	logFieldCommitConstant                  = "commit"
	gitDirectoryNameConstant                = ".git"
	gitInfoDirectoryNameConstant            = "info"
	gitExcludeFileNameConstant              = "exclude"
	metadataExcludeEntryTemplateConstant    = "/%s/\n"
)

// ErrGatewayNotConfigured indicates the git gateway dependency was missing.
var ErrGatewayNotConfigured = errors.New(gatewayMissingMessageConstant)

// ErrDestinationRequired indicates an empty destination.
var ErrDestinationRequired = errors.New(destinationRequiredMessageConstant)

// ErrDestinationNotDirectory indicates the destination names an existing file.
var ErrDestinationNotDirectory = errors.New(destinationNotDirectoryMessageConstant)

// ErrDestinationNotEmpty indicates the destination directory already has entries.
var ErrDestinationNotEmpty = errors.New(destinationNotEmptyMessageConstant)

// Dependencies enumerates external collaborators required for clone operations.
type Dependencies struct {
	Gateway gitgateway.Gateway
	Logger  *zap.Logger
}

// Options configures a clone operation.
type Options struct {
	RemoteURL   string
	Destination string
	Patterns    []string
	Filter      string
}

// Result captures the observable outcomes of a clone.
type Result struct {
	RepositoryRoot string
	Remote         gitrepo.RemoteDescription
	Metadata       metadata.PartialCloneMetadata
}

// Service creates partial clones.
type Service struct {
	gateway gitgateway.Gateway
	logger  *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gateway: dependencies.Gateway, logger: logger}, nil
}

// Clone validates every input, clones the remote sparsely, restricts the
// checkout to the requested patterns, and writes the initial metadata.
// No git command runs when validation fails.
func (service *Service) Clone(executionContext context.Context, options Options) (Result, error) {
	selection, _, selectionError := metadata.AddPaths(metadata.PartialCloneMetadata{}, options.Patterns)
	if selectionError != nil {
		return Result{}, selectionError
	}

	remoteURL := strings.TrimSpace(options.RemoteURL)
	remoteDescription, remoteError := gitrepo.DescribeRemote(remoteURL)
	if remoteError != nil {
		return Result{}, remoteError
	}

	destination := strings.TrimSpace(options.Destination)
	if len(destination) == 0 {
		return Result{}, failure.New(failure.KindInvalidArgument, destinationSubjectConstant, ErrDestinationRequired)
	}
	if availabilityError := ensureDestinationAvailable(destination); availabilityError != nil {
		return Result{}, availabilityError
	}

	service.logger.Info(
		cloneStartedMessageConstant,
		zap.String(logFieldRemoteConstant, remoteDescription.String()),
		zap.String(logFieldDestinationConstant, destination),
		zap.Strings(logFieldPatternsConstant, selection.Paths),
		zap.String(logFieldFilterConstant, options.Filter),
	)

	if cloneError := service.gateway.CloneSparse(executionContext, remoteURL, destination, options.Filter); cloneError != nil {
		return Result{}, fmt.Errorf(cloneFailureTemplateConstant, cloneError)
	}
	if sparseError := service.gateway.SetSparsePatterns(executionContext, destination, selection.Paths); sparseError != nil {
		return Result{}, fmt.Errorf(sparseConfigurationFailureTemplate, sparseError)
	}

	headCommit, headError := service.gateway.HeadCommit(executionContext, destination)
	if headError != nil {
		return Result{}, fmt.Errorf(headResolutionFailureTemplateConstant, headError)
	}

	initialMetadata, metadataError := metadata.New(remoteURL, selection.Paths, headCommit)
	if metadataError != nil {
		return Result{}, fmt.Errorf(metadataCreationFailureTemplateConstant, metadataError)
	}
	if saveError := metadata.Save(destination, initialMetadata); saveError != nil {
		return Result{}, fmt.Errorf(metadataCreationFailureTemplateConstant, saveError)
	}
	if excludeError := excludeMetadataDirectory(destination); excludeError != nil {
		return Result{}, fmt.Errorf(metadataCreationFailureTemplateConstant, excludeError)
	}

	service.logger.Info(
		cloneCompletedMessageConstant,
		zap.String(logFieldDestinationConstant, destination),
		zap.String(logFieldCommitConstant, initialMetadata.LastSyncedCommit),
	)

	return Result{RepositoryRoot: destination, Remote: remoteDescription, Metadata: initialMetadata}, nil
}

func ensureDestinationAvailable(destination string) error {
	destinationInfo, statError := os.Stat(destination)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil
		}
		return failure.New(failure.KindIOFailure, destination, statError)
	}
	if !destinationInfo.IsDir() {
		return failure.New(failure.KindInvalidArgument, destination, ErrDestinationNotDirectory)
	}

	directoryEntries, readError := os.ReadDir(destination)
	if readError != nil {
		return failure.New(failure.KindIOFailure, destination, readError)
	}
	if len(directoryEntries) > 0 {
		return failure.New(failure.KindInvalidArgument, destination, ErrDestinationNotEmpty)
	}
	return nil
}

// excludeMetadataDirectory keeps the metadata directory out of git status by listing it in .git/info/exclude.
func excludeMetadataDirectory(repositoryRoot string) error {
	gitDirectory := filepath.Join(repositoryRoot, gitDirectoryNameConstant)
	if gitDirectoryInfo, statError := os.Stat(gitDirectory); statError != nil || !gitDirectoryInfo.IsDir() {
		return nil
	}

	infoDirectory := filepath.Join(gitDirectory, gitInfoDirectoryNameConstant)
	if mkdirError := os.MkdirAll(infoDirectory, 0o755); mkdirError != nil {
		return failure.New(failure.KindIOFailure, infoDirectory, mkdirError)
	}

	excludePath := filepath.Join(infoDirectory, gitExcludeFileNameConstant)
	excludeEntry := fmt.Sprintf(metadataExcludeEntryTemplateConstant, metadata.DirectoryName)
	existingContents, readError := os.ReadFile(excludePath)
	if readError != nil && !errors.Is(readError, fs.ErrNotExist) {
		return failure.New(failure.KindIOFailure, excludePath, readError)
	}
	if strings.Contains(string(existingContents), excludeEntry) {
		return nil
	}
	if len(existingContents) > 0 && !strings.HasSuffix(string(existingContents), "\n") {
		excludeEntry = "\n" + excludeEntry
	}

	excludeFile, openError := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openError != nil {
		return failure.New(failure.KindIOFailure, excludePath, openError)
	}
	if _, writeError := excludeFile.WriteString(excludeEntry); writeError != nil {
		_ = excludeFile.Close()
		return failure.New(failure.KindIOFailure, excludePath, writeError)
	}
	if closeError := excludeFile.Close(); closeError != nil {
		return failure.New(failure.KindIOFailure, excludePath, closeError)
	}
	return nil
}
