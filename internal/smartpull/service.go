package smartpull

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/metadata"
)

const (
	gatewayMissingMessageConstant         = "git gateway not configured"
	storeMissingMessageConstant           = "metadata store not configured"
	detachedHeadMessageConstant           = "HEAD is detached; check out a branch before pulling"
	upstreamMissingMessageConstant        = "remote-tracking branch does not exist"
	divergedMessageConstant               = "local branch has commits that are not on the remote; reconcile them before pulling"
	gitHeadReferenceConstant              = "HEAD"
	currentBranchSubjectConstant          = "git branch"
	remoteReferenceTemplateConstant       = "refs/remotes/%s/%s"
	upstreamTemplateConstant              = "%s/%s"
	fetchFailureTemplateConstant          = "unable to fetch %s: %w"
	branchFailureTemplateConstant         = "unable to determine current branch: %w"
	upstreamLookupFailureTemplateConstant = "unable to resolve upstream %s: %w"
	ancestryFailureTemplateConstant       = "unable to compare HEAD with %s: %w"
	headFailureTemplateConstant           = "unable to resolve HEAD: %w"
	mergeFailureTemplateConstant          = "unable to fast-forward to %s: %w"
	pullStartedMessageConstant            = "smart pull started"
	pullRejectedMessageConstant           = "smart pull rejected; local history diverged"
	pullCompletedMessageConstant          = "smart pull completed"
	logFieldRepositoryRootConstant        = "repository_root"
	logFieldRemoteConstant                = "remote"
	logFieldBranchConstant                = "branch"
	logFieldUpstreamConstant              = "upstream"
	logFieldPreviousCommitConstant        = "previous_commit"
	logFieldCommitConstant                = "commit"
)

// ErrGatewayNotConfigured indicates the git gateway dependency was missing.
var ErrGatewayNotConfigured = errors.New(gatewayMissingMessageConstant)

// ErrStoreNotConfigured indicates the metadata store dependency was missing.
var ErrStoreNotConfigured = errors.New(storeMissingMessageConstant)

// ErrDetachedHead indicates HEAD does not name a branch.
var ErrDetachedHead = errors.New(detachedHeadMessageConstant)

// ErrUpstreamMissing indicates the remote has no branch matching the current one.
var ErrUpstreamMissing = errors.New(upstreamMissingMessageConstant)

// ErrDiverged indicates HEAD is not an ancestor of the remote-tracking branch.
var ErrDiverged = errors.New(divergedMessageConstant)

// Dependencies enumerates external collaborators required for smart-pull.
type Dependencies struct {
	Gateway gitgateway.Gateway
	Store   *metadata.Store
	Logger  *zap.Logger
}

// Options configures a smart-pull operation.
type Options struct {
	WorkingDirectory string
	Remote           string
}

// Result captures the observable outcomes of smart-pull.
type Result struct {
	RepositoryRoot string
	Branch         string
	Upstream       string
	PreviousCommit string
	Metadata       metadata.PartialCloneMetadata
}

// Advanced reports whether the pull moved HEAD.
func (result Result) Advanced() bool {
	return result.PreviousCommit != result.Metadata.LastSyncedCommit
}

// Service synchronizes partial clones with their remote.
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

// Pull fetches the remote and fast-forwards the current branch to its
// remote-tracking branch. The merge is only attempted when HEAD is an
// ancestor of the remote-tracking branch; otherwise NonFastForward is
// returned and neither the working tree nor the metadata changes. The
// recorded last synced commit is written only after the merge succeeds.
func (service *Service) Pull(executionContext context.Context, options Options) (Result, error) {
	repositoryRoot, locateError := metadata.LocateRoot(options.WorkingDirectory)
	if locateError != nil {
		return Result{}, locateError
	}
	if _, loadError := metadata.Load(repositoryRoot); loadError != nil {
		return Result{}, loadError
	}

	remoteName := strings.TrimSpace(options.Remote)
	if len(remoteName) == 0 {
		remoteName = defaultRemoteNameConstant
	}

	service.logger.Info(pullStartedMessageConstant,
		zap.String(logFieldRepositoryRootConstant, repositoryRoot),
		zap.String(logFieldRemoteConstant, remoteName),
	)

	if fetchError := service.gateway.Fetch(executionContext, repositoryRoot, remoteName); fetchError != nil {
		return Result{}, fmt.Errorf(fetchFailureTemplateConstant, remoteName, fetchError)
	}

	branch, branchError := service.gateway.CurrentBranch(executionContext, repositoryRoot)
	if branchError != nil {
		return Result{}, fmt.Errorf(branchFailureTemplateConstant, branchError)
	}
	if len(branch) == 0 {
		return Result{}, failure.New(failure.KindGitOperationFailed, currentBranchSubjectConstant, ErrDetachedHead)
	}

	upstream := fmt.Sprintf(upstreamTemplateConstant, remoteName, branch)
	upstreamExists, lookupError := service.gateway.ReferenceExists(executionContext, repositoryRoot, fmt.Sprintf(remoteReferenceTemplateConstant, remoteName, branch))
	if lookupError != nil {
		return Result{}, fmt.Errorf(upstreamLookupFailureTemplateConstant, upstream, lookupError)
	}
	if !upstreamExists {
		return Result{}, failure.New(failure.KindGitOperationFailed, upstream, ErrUpstreamMissing)
	}

	fastForwardPossible, ancestryError := service.gateway.IsAncestor(executionContext, repositoryRoot, gitHeadReferenceConstant, upstream)
	if ancestryError != nil {
		return Result{}, fmt.Errorf(ancestryFailureTemplateConstant, upstream, ancestryError)
	}
	if !fastForwardPossible {
		service.logger.Warn(pullRejectedMessageConstant,
			zap.String(logFieldRepositoryRootConstant, repositoryRoot),
			zap.String(logFieldBranchConstant, branch),
			zap.String(logFieldUpstreamConstant, upstream),
		)
		return Result{}, failure.New(failure.KindNonFastForward, upstream, ErrDiverged)
	}

	previousCommit, headError := service.gateway.HeadCommit(executionContext, repositoryRoot)
	if headError != nil {
		return Result{}, fmt.Errorf(headFailureTemplateConstant, headError)
	}

	updated, updateError := service.store.Update(executionContext, repositoryRoot, func(current metadata.PartialCloneMetadata) (metadata.PartialCloneMetadata, bool, error) {
		if mergeError := service.gateway.MergeFastForward(executionContext, repositoryRoot, upstream); mergeError != nil {
			return current, false, fmt.Errorf(mergeFailureTemplateConstant, upstream, mergeError)
		}
		currentHead, currentHeadError := service.gateway.HeadCommit(executionContext, repositoryRoot)
		if currentHeadError != nil {
			return current, false, fmt.Errorf(headFailureTemplateConstant, currentHeadError)
		}
		synced, syncError := metadata.RecordSync(current, currentHead)
		if syncError != nil {
			return current, false, syncError
		}
		return synced, !synced.Equal(current), nil
	})
	if updateError != nil {
		return Result{}, updateError
	}

	service.logger.Info(pullCompletedMessageConstant,
		zap.String(logFieldRepositoryRootConstant, repositoryRoot),
		zap.String(logFieldBranchConstant, branch),
		zap.String(logFieldPreviousCommitConstant, previousCommit),
		zap.String(logFieldCommitConstant, updated.LastSyncedCommit),
	)

	return Result{
		RepositoryRoot: repositoryRoot,
		Branch:         branch,
		Upstream:       upstream,
		PreviousCommit: previousCommit,
		Metadata:       updated,
	}, nil
}
