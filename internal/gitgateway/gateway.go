package gitgateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/gitpartial/internal/execshell"
	"github.com/temirov/gitpartial/internal/failure"
)

const (
	gitCloneSubcommandConstant                  = "clone"
	gitFilterFlagTemplateConstant               = "--filter=%s"
	gitSparseFlagConstant                       = "--sparse"
	gitSparseCheckoutSubcommandConstant         = "sparse-checkout"
	gitSparseCheckoutSetSubcommandConstant      = "set"
	gitNoConeFlagConstant                       = "--no-cone"
	gitArgumentTerminatorConstant               = "--"
	gitFetchSubcommandConstant                  = "fetch"
	gitQuietFlagConstant                        = "--quiet"
	gitMergeBaseSubcommandConstant              = "merge-base"
	gitIsAncestorFlagConstant                   = "--is-ancestor"
	gitMergeSubcommandConstant                  = "merge"
	gitFastForwardOnlyFlagConstant              = "--ff-only"
	gitBranchSubcommandConstant                 = "branch"
	gitShowCurrentFlagConstant                  = "--show-current"
	gitRevParseSubcommandConstant               = "rev-parse"
	gitVerifyFlagConstant                       = "--verify"
	gitHeadReferenceConstant                    = "HEAD"
	gitRevListSubcommandConstant                = "rev-list"
	gitLeftRightFlagConstant                    = "--left-right"
	gitCountFlagConstant                        = "--count"
	gitSymmetricRangeTemplateConstant           = "%s...%s"
	gitStatusSubcommandConstant                 = "status"
	gitShortFlagConstant                        = "--short"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	gitNegativeAnswerExitCodeConstant           = 1
	rootAnchorConstant                          = "/"
	lineSeparatorConstant                       = "\n"
	carriageReturnConstant                      = "\r"
	operationSubjectTemplateConstant            = "git %s"
	gitExecutorMissingMessageConstant           = "git executor not configured"
	unexpectedCountOutputTemplateConstant       = "unexpected rev-list output %q"
	invalidCountTemplateConstant                = "parse commit count %q: %w"
	remoteNameRequiredMessageConstant           = "remote name must be provided"
	referenceRequiredMessageConstant            = "reference must be provided"
	remoteNameSubjectConstant                   = "remote"
	referenceSubjectConstant                    = "reference"
	expectedCountFieldsConstant                 = 2
)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRemoteNameRequired indicates an empty remote name.
var ErrRemoteNameRequired = errors.New(remoteNameRequiredMessageConstant)

// ErrReferenceRequired indicates an empty reference.
var ErrReferenceRequired = errors.New(referenceRequiredMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// AheadBehind counts commits reachable from only one side of a comparison.
type AheadBehind struct {
	Ahead  int
	Behind int
}

// Gateway enumerates the Git operations used by git-partial.
type Gateway interface {
	CloneSparse(executionContext context.Context, remoteURL string, destination string, filter string) error
	SetSparsePatterns(executionContext context.Context, repositoryRoot string, patterns []string) error
	Fetch(executionContext context.Context, repositoryRoot string, remoteName string) error
	IsAncestor(executionContext context.Context, repositoryRoot string, ancestor string, descendant string) (bool, error)
	MergeFastForward(executionContext context.Context, repositoryRoot string, reference string) error
	CurrentBranch(executionContext context.Context, repositoryRoot string) (string, error)
	HeadCommit(executionContext context.Context, repositoryRoot string) (string, error)
	AheadBehind(executionContext context.Context, repositoryRoot string, local string, upstream string) (AheadBehind, error)
	ShortStatus(executionContext context.Context, repositoryRoot string) ([]string, error)
	ReferenceExists(executionContext context.Context, repositoryRoot string, reference string) (bool, error)
}

// CLIGateway implements Gateway by invoking the git executable.
type CLIGateway struct {
	executor GitExecutor
}

// NewCLIGateway constructs a CLIGateway.
func NewCLIGateway(executor GitExecutor) (*CLIGateway, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &CLIGateway{executor: executor}, nil
}

// CloneSparse clones remoteURL into destination without checking out any files beyond the repository root.
// An empty filter performs a full-history clone.
func (gateway *CLIGateway) CloneSparse(executionContext context.Context, remoteURL string, destination string, filter string) error {
	arguments := []string{gitCloneSubcommandConstant}
	if trimmedFilter := strings.TrimSpace(filter); len(trimmedFilter) > 0 {
		arguments = append(arguments, fmt.Sprintf(gitFilterFlagTemplateConstant, trimmedFilter))
	}
	arguments = append(arguments, gitSparseFlagConstant, gitArgumentTerminatorConstant, remoteURL, destination)

	_, executionError := gateway.run(executionContext, execshell.CommandDetails{Arguments: arguments}, true)
	return executionError
}

// SetSparsePatterns replaces the sparse-checkout pattern set and materializes newly selected files.
func (gateway *CLIGateway) SetSparsePatterns(executionContext context.Context, repositoryRoot string, patterns []string) error {
	arguments := []string{gitSparseCheckoutSubcommandConstant, gitSparseCheckoutSetSubcommandConstant, gitNoConeFlagConstant, gitArgumentTerminatorConstant}
	arguments = append(arguments, AnchorPatterns(patterns)...)

	_, executionError := gateway.run(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryRoot}, false)
	return executionError
}

// Fetch updates remote-tracking references for remoteName.
func (gateway *CLIGateway) Fetch(executionContext context.Context, repositoryRoot string, remoteName string) error {
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return failure.New(failure.KindInvalidArgument, remoteNameSubjectConstant, ErrRemoteNameRequired)
	}

	_, executionError := gateway.run(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, gitQuietFlagConstant, trimmedRemote},
		WorkingDirectory: repositoryRoot,
	}, true)
	return executionError
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (gateway *CLIGateway) IsAncestor(executionContext context.Context, repositoryRoot string, ancestor string, descendant string) (bool, error) {
	details := execshell.CommandDetails{
		Arguments:        []string{gitMergeBaseSubcommandConstant, gitIsAncestorFlagConstant, ancestor, descendant},
		WorkingDirectory: repositoryRoot,
	}
	_, executionError := gateway.executor.ExecuteGit(executionContext, details)
	if executionError == nil {
		return true, nil
	}
	if isNegativeAnswer(executionError) {
		return false, nil
	}
	return false, classify(details, executionError)
}

// MergeFastForward advances the current branch to reference, refusing anything but a fast-forward.
func (gateway *CLIGateway) MergeFastForward(executionContext context.Context, repositoryRoot string, reference string) error {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return failure.New(failure.KindInvalidArgument, referenceSubjectConstant, ErrReferenceRequired)
	}

	_, executionError := gateway.run(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, trimmedReference},
		WorkingDirectory: repositoryRoot,
	}, false)
	return executionError
}

// CurrentBranch returns the checked-out branch name, or an empty string for a detached HEAD.
func (gateway *CLIGateway) CurrentBranch(executionContext context.Context, repositoryRoot string) (string, error) {
	executionResult, executionError := gateway.run(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitBranchSubcommandConstant, gitShowCurrentFlagConstant},
		WorkingDirectory: repositoryRoot,
	}, false)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// HeadCommit returns the full object name of HEAD.
func (gateway *CLIGateway) HeadCommit(executionContext context.Context, repositoryRoot string) (string, error) {
	executionResult, executionError := gateway.run(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryRoot,
	}, false)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// AheadBehind counts commits only on local (Ahead) and only on upstream (Behind).
func (gateway *CLIGateway) AheadBehind(executionContext context.Context, repositoryRoot string, local string, upstream string) (AheadBehind, error) {
	details := execshell.CommandDetails{
		Arguments:        []string{gitRevListSubcommandConstant, gitLeftRightFlagConstant, gitCountFlagConstant, fmt.Sprintf(gitSymmetricRangeTemplateConstant, local, upstream)},
		WorkingDirectory: repositoryRoot,
	}
	executionResult, executionError := gateway.run(executionContext, details, false)
	if executionError != nil {
		return AheadBehind{}, executionError
	}

	countFields := strings.Fields(executionResult.StandardOutput)
	if len(countFields) != expectedCountFieldsConstant {
		return AheadBehind{}, failure.New(failure.KindGitOperationFailed, describeOperation(details), fmt.Errorf(unexpectedCountOutputTemplateConstant, executionResult.StandardOutput))
	}
	aheadCount, aheadError := strconv.Atoi(countFields[0])
	if aheadError != nil {
		return AheadBehind{}, failure.New(failure.KindGitOperationFailed, describeOperation(details), fmt.Errorf(invalidCountTemplateConstant, countFields[0], aheadError))
	}
	behindCount, behindError := strconv.Atoi(countFields[1])
	if behindError != nil {
		return AheadBehind{}, failure.New(failure.KindGitOperationFailed, describeOperation(details), fmt.Errorf(invalidCountTemplateConstant, countFields[1], behindError))
	}
	return AheadBehind{Ahead: aheadCount, Behind: behindCount}, nil
}

// ShortStatus returns the lines of "git status --short", without trailing newlines.
func (gateway *CLIGateway) ShortStatus(executionContext context.Context, repositoryRoot string) ([]string, error) {
	executionResult, executionError := gateway.run(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitShortFlagConstant},
		WorkingDirectory: repositoryRoot,
	}, false)
	if executionError != nil {
		return nil, executionError
	}

	statusLines := []string{}
	for _, statusLine := range strings.Split(executionResult.StandardOutput, lineSeparatorConstant) {
		trimmedLine := strings.TrimRight(statusLine, carriageReturnConstant)
		if len(strings.TrimSpace(trimmedLine)) == 0 {
			continue
		}
		statusLines = append(statusLines, trimmedLine)
	}
	return statusLines, nil
}

// ReferenceExists reports whether reference resolves to an object.
func (gateway *CLIGateway) ReferenceExists(executionContext context.Context, repositoryRoot string, reference string) (bool, error) {
	details := execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, reference},
		WorkingDirectory: repositoryRoot,
	}
	_, executionError := gateway.executor.ExecuteGit(executionContext, details)
	if executionError == nil {
		return true, nil
	}
	if isNegativeAnswer(executionError) {
		return false, nil
	}
	return false, classify(details, executionError)
}

// AnchorPatterns prefixes "/" to every pattern whose only slash, if any, is a
// trailing one. Git treats such patterns as matching at any depth, so "*.md"
// would otherwise also check out docs/guide.md. Anchored, git selects exactly
// the root-relative paths that pathselect matches.
func AnchorPatterns(patterns []string) []string {
	anchoredPatterns := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if strings.Contains(strings.TrimSuffix(pattern, rootAnchorConstant), rootAnchorConstant) {
			anchoredPatterns = append(anchoredPatterns, pattern)
			continue
		}
		anchoredPatterns = append(anchoredPatterns, rootAnchorConstant+pattern)
	}
	return anchoredPatterns
}

func (gateway *CLIGateway) run(executionContext context.Context, details execshell.CommandDetails, network bool) (execshell.ExecutionResult, error) {
	if network {
		if details.EnvironmentVariables == nil {
			details.EnvironmentVariables = map[string]string{}
		}
		details.EnvironmentVariables[gitTerminalPromptEnvironmentNameConstant] = gitTerminalPromptEnvironmentDisableConstant
	}

	executionResult, executionError := gateway.executor.ExecuteGit(executionContext, details)
	if executionError != nil {
		return execshell.ExecutionResult{}, classify(details, executionError)
	}
	return executionResult, nil
}

func isNegativeAnswer(executionError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return false
	}
	return failedError.Result.ExitCode == gitNegativeAnswerExitCodeConstant
}

func classify(details execshell.CommandDetails, executionError error) error {
	return failure.New(failure.KindGitOperationFailed, describeOperation(details), executionError)
}

func describeOperation(details execshell.CommandDetails) string {
	if len(details.Arguments) == 0 {
		return fmt.Sprintf(operationSubjectTemplateConstant, "")
	}
	return fmt.Sprintf(operationSubjectTemplateConstant, details.Arguments[0])
}

// StandardError extracts the captured standard error of a failed git command, if any.
func StandardError(err error) string {
	var failedError execshell.CommandFailedError
	if !errors.As(err, &failedError) {
		return ""
	}
	return failedError.Result.StandardError
}
