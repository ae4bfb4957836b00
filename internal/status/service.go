package status

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/gitrepo"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/pathselect"
)

const (
	gatewayMissingMessageConstant         = "git gateway not configured"
	remoteReferenceTemplateConstant       = "refs/remotes/%s/%s"
	upstreamTemplateConstant              = "%s/%s"
	branchFailureTemplateConstant         = "unable to determine current branch: %w"
	upstreamLookupFailureTemplateConstant = "unable to resolve upstream %s: %w"
	divergenceFailureTemplateConstant     = "unable to compare with upstream %s: %w"
	workingTreeFailureTemplateConstant    = "unable to read working tree status: %w"
	selectorFailureTemplateConstant       = "unable to compile recorded patterns: %w"
	fetchSkippedMessageConstant           = "status fetch disabled"
	fetchFailedMessageConstant            = "status fetch failed; reporting last known remote state"
	statusCollectedMessageConstant        = "partial clone status collected"
	logFieldRepositoryRootConstant        = "repository_root"
	logFieldRemoteConstant                = "remote"
	logFieldBranchConstant                = "branch"
	logFieldChangesConstant               = "changes"
	statusCodeWidthConstant               = 3
	renameSeparatorConstant               = " -> "
	quoteCharacterConstant                = "\""
	directorySuffixConstant               = "/"
	gitHeadReferenceConstant              = "HEAD"
)

// ErrGatewayNotConfigured indicates the git gateway dependency was missing.
var ErrGatewayNotConfigured = errors.New(gatewayMissingMessageConstant)

// Dependencies enumerates external collaborators required for status.
type Dependencies struct {
	Gateway gitgateway.Gateway
	Logger  *zap.Logger
}

// Options configures a status query.
type Options struct {
	WorkingDirectory string
	Remote           string
	Fetch            bool
}

// Report captures everything the status command displays.
type Report struct {
	RepositoryRoot    string
	Metadata          metadata.PartialCloneMetadata
	RemoteName        string
	Remote            gitrepo.RemoteDescription
	RemoteDescribed   bool
	Branch            string
	Upstream          string
	UpstreamAvailable bool
	Divergence        gitgateway.AheadBehind
	FetchError        error
	Changes           []string
	InScopeChanges    []string
	OutOfScopeChanges []string
}

// Detached reports whether HEAD was not on a branch.
func (report Report) Detached() bool {
	return len(report.Branch) == 0
}

// Service collects partial clone status.
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

// Collect gathers the status report for the partial clone containing the
// working directory. A failed fetch is recorded on the report rather than
// returned, since the remaining information is still meaningful offline.
func (service *Service) Collect(executionContext context.Context, options Options) (Report, error) {
	repositoryRoot, locateError := metadata.LocateRoot(options.WorkingDirectory)
	if locateError != nil {
		return Report{}, locateError
	}
	recordedMetadata, loadError := metadata.Load(repositoryRoot)
	if loadError != nil {
		return Report{}, loadError
	}

	remoteName := strings.TrimSpace(options.Remote)
	if len(remoteName) == 0 {
		remoteName = defaultRemoteNameConstant
	}

	report := Report{RepositoryRoot: repositoryRoot, Metadata: recordedMetadata, RemoteName: remoteName}
	if remoteDescription, describeError := gitrepo.DescribeRemote(recordedMetadata.RemoteURL); describeError == nil {
		report.Remote = remoteDescription
		report.RemoteDescribed = true
	}

	if options.Fetch {
		if fetchError := service.gateway.Fetch(executionContext, repositoryRoot, remoteName); fetchError != nil {
			report.FetchError = fetchError
			service.logger.Warn(fetchFailedMessageConstant,
				zap.String(logFieldRepositoryRootConstant, repositoryRoot),
				zap.String(logFieldRemoteConstant, remoteName),
				zap.Error(fetchError),
			)
		}
	} else {
		service.logger.Debug(fetchSkippedMessageConstant, zap.String(logFieldRepositoryRootConstant, repositoryRoot))
	}

	branch, branchError := service.gateway.CurrentBranch(executionContext, repositoryRoot)
	if branchError != nil {
		return Report{}, fmt.Errorf(branchFailureTemplateConstant, branchError)
	}
	report.Branch = branch

	if !report.Detached() {
		report.Upstream = fmt.Sprintf(upstreamTemplateConstant, remoteName, branch)
		upstreamExists, lookupError := service.gateway.ReferenceExists(executionContext, repositoryRoot, fmt.Sprintf(remoteReferenceTemplateConstant, remoteName, branch))
		if lookupError != nil {
			return Report{}, fmt.Errorf(upstreamLookupFailureTemplateConstant, report.Upstream, lookupError)
		}
		if upstreamExists {
			divergence, divergenceError := service.gateway.AheadBehind(executionContext, repositoryRoot, gitHeadReferenceConstant, report.Upstream)
			if divergenceError != nil {
				return Report{}, fmt.Errorf(divergenceFailureTemplateConstant, report.Upstream, divergenceError)
			}
			report.UpstreamAvailable = true
			report.Divergence = divergence
		}
	}

	changes, statusError := service.gateway.ShortStatus(executionContext, repositoryRoot)
	if statusError != nil {
		return Report{}, fmt.Errorf(workingTreeFailureTemplateConstant, statusError)
	}
	report.Changes = changes

	selector, selectorError := pathselect.New(recordedMetadata.Paths)
	if selectorError != nil {
		return Report{}, fmt.Errorf(selectorFailureTemplateConstant, selectorError)
	}
	report.InScopeChanges, report.OutOfScopeChanges = partitionChanges(selector, changes)

	service.logger.Info(statusCollectedMessageConstant,
		zap.String(logFieldRepositoryRootConstant, repositoryRoot),
		zap.String(logFieldBranchConstant, branch),
		zap.Int(logFieldChangesConstant, len(changes)),
	)
	return report, nil
}

// partitionChanges splits short-status lines by whether their path is selected.
// A collapsed untracked directory ("?? dir/") is in scope when a selected file
// could live below it.
func partitionChanges(selector *pathselect.Selector, statusLines []string) ([]string, []string) {
	inScope := []string{}
	outOfScope := []string{}
	for _, statusLine := range statusLines {
		candidatePath, isDirectory := changedPath(statusLine)
		selected := selector.Matches(candidatePath)
		if isDirectory {
			selected = selector.MatchesDirectory(candidatePath)
		}
		if selected {
			inScope = append(inScope, statusLine)
			continue
		}
		outOfScope = append(outOfScope, statusLine)
	}
	return inScope, outOfScope
}

// changedPath extracts the destination path from a "git status --short" line
// and reports whether it names a directory.
func changedPath(statusLine string) (string, bool) {
	if len(statusLine) <= statusCodeWidthConstant {
		return "", false
	}
	candidate := statusLine[statusCodeWidthConstant:]
	if separatorIndex := strings.LastIndex(candidate, renameSeparatorConstant); separatorIndex >= 0 {
		candidate = candidate[separatorIndex+len(renameSeparatorConstant):]
	}
	if strings.HasPrefix(candidate, quoteCharacterConstant) {
		if unquoted, unquoteError := strconv.Unquote(candidate); unquoteError == nil {
			candidate = unquoted
		}
	}
	if strings.HasSuffix(candidate, directorySuffixConstant) {
		return strings.TrimSuffix(candidate, directorySuffixConstant), true
	}
	return candidate, false
}
