package addpaths

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/metadata"
)

const (
	gatewayMissingMessageConstant       = "git gateway not configured"
	storeMissingMessageConstant         = "metadata store not configured"
	sparseUpdateFailureTemplateConstant = "unable to update sparse checkout: %w"
	pathsAddedMessageConstant           = "sparse checkout paths added"
	pathsUnchangedMessageConstant       = "no new paths to add; sparse checkout and metadata unchanged"
	logFieldRepositoryRootConstant      = "repository_root"
	logFieldAddedPatternsConstant       = "added_patterns"
	logFieldPatternsConstant            = "patterns"
)

// ErrGatewayNotConfigured indicates the git gateway dependency was missing.
var ErrGatewayNotConfigured = errors.New(gatewayMissingMessageConstant)

// ErrStoreNotConfigured indicates the metadata store dependency was missing.
var ErrStoreNotConfigured = errors.New(storeMissingMessageConstant)

// Dependencies enumerates external collaborators required for add-paths.
type Dependencies struct {
	Gateway gitgateway.Gateway
	Store   *metadata.Store
	Logger  *zap.Logger
}

// Options configures an add-paths operation.
type Options struct {
	WorkingDirectory string
	Patterns         []string
}

// Result captures the observable outcomes of add-paths.
type Result struct {
	RepositoryRoot string
	AddedPatterns  []string
	Metadata       metadata.PartialCloneMetadata
}

// Changed reports whether any pattern was added.
func (result Result) Changed() bool {
	return len(result.AddedPatterns) > 0
}

// Service extends the pattern set of partial clones.
type Service struct {
	gateway gitgateway.Gateway
	store   *metadata.Store
	logger  *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gateway: dependencies.Gateway, store: dependencies.Store, logger: logger}, nil
}

// AddPaths validates the requested patterns, locates the clone root from the
// working directory, and merges the patterns into the recorded set. Git is
// asked to apply the merged set before the metadata is written; when every
// pattern is already present neither git nor the metadata is touched.
func (service *Service) AddPaths(executionContext context.Context, options Options) (Result, error) {
	if _, _, validationError := metadata.AddPaths(metadata.PartialCloneMetadata{}, options.Patterns); validationError != nil {
		return Result{}, validationError
	}

	repositoryRoot, locateError := metadata.LocateRoot(options.WorkingDirectory)
	if locateError != nil {
		return Result{}, locateError
	}

	var addedPatterns []string
	updated, updateError := service.store.Update(executionContext, repositoryRoot, func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		merged, changed, mergeError := metadata.AddPaths(current, options.Patterns)
		if mergeError != nil {
			return current, false, mergeError
		}
		if !changed {
			return current, false, nil
		}
		if sparseError := service.gateway.SetSparsePatterns(executionContext, repositoryRoot, merged.Paths); sparseError != nil {
			return current, false, fmt.Errorf(sparseUpdateFailureTemplateConstant, sparseError)
		}
		addedPatterns = newlyAddedPatterns(current.Paths, merged.Paths)
		return merged, true, nil
	})
	if updateError != nil {
		return Result{}, updateError
	}

	result := Result{RepositoryRoot: repositoryRoot, AddedPatterns: addedPatterns, Metadata: updated}
	if !result.Changed() {
		service.logger.Info(pathsUnchangedMessageConstant, zap.String(logFieldRepositoryRootConstant, repositoryRoot))
		return result, nil
	}

	service.logger.Info(
		pathsAddedMessageConstant,
		zap.String(logFieldRepositoryRootConstant, repositoryRoot),
		zap.Strings(logFieldAddedPatternsConstant, addedPatterns),
		zap.Strings(logFieldPatternsConstant, updated.Paths),
	)
	return result, nil
}

func newlyAddedPatterns(previous []string, merged []string) []string {
	previousSet := make(map[string]struct{}, len(previous))
	for _, pattern := range previous {
		previousSet[pattern] = struct{}{}
	}
	added := make([]string, 0, len(merged))
	for _, pattern := range merged {
		if _, existed := previousSet[pattern]; !existed {
			added = append(added, pattern)
		}
	}
	return added
}
