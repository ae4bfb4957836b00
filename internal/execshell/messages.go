package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
	argumentTerminatorConstant              = "--"
	referencesJoinSeparatorConstant         = ", "
)

const (
	gitCloneSubcommandNameConstant          = "clone"
	gitSparseCheckoutSubcommandNameConstant = "sparse-checkout"
	gitFetchSubcommandNameConstant          = "fetch"
	gitMergeSubcommandNameConstant          = "merge"
	gitMergeBaseSubcommandNameConstant      = "merge-base"
	gitRevParseSubcommandNameConstant       = "rev-parse"
	gitRevListSubcommandNameConstant        = "rev-list"
	gitStatusSubcommandNameConstant         = "status"
	gitBranchSubcommandNameConstant         = "branch"
	gitShowCurrentFlagConstant              = "--show-current"
	gitIsAncestorFlagConstant               = "--is-ancestor"
	gitVerifyFlagConstant                   = "--verify"
)

const (
	gitCloneStartTemplateConstant                       = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant                     = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                     = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant            = "Unable to clone %s into %s: %s"
	gitSparseCheckoutStartTemplateConstant              = "Applying sparse-checkout patterns %s in %s"
	gitSparseCheckoutSuccessTemplateConstant            = "Applied sparse-checkout patterns %s in %s"
	gitSparseCheckoutFailureTemplateConstant            = "Failed to apply sparse-checkout patterns %s in %s (exit code %d%s)"
	gitSparseCheckoutExecutionFailureTemplateConstant   = "Unable to apply sparse-checkout patterns %s in %s: %s"
	gitFetchStartTemplateConstant                       = "Fetching %s from %s in %s"
	gitFetchWithoutRefsStartTemplateConstant            = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant                     = "Fetched %s from %s in %s"
	gitFetchWithoutRefsSuccessTemplateConstant          = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant                     = "Failed to fetch %s from %s in %s (exit code %d%s)"
	gitFetchWithoutRefsFailureTemplateConstant          = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant            = "Unable to fetch %s from %s in %s: %s"
	gitFetchWithoutRefsExecutionFailureTemplateConstant = "Unable to fetch from %s in %s: %s"
	gitFetchAllRemotesLabelConstant                     = "all remotes"
	gitMergeStartTemplateConstant                       = "Fast-forwarding %s to %s"
	gitMergeSuccessTemplateConstant                     = "Fast-forwarded %s to %s"
	gitMergeFailureTemplateConstant                     = "Failed to fast-forward %s to %s (exit code %d%s)"
	gitMergeExecutionFailureTemplateConstant            = "Unable to fast-forward %s to %s: %s"
	gitAncestryStartTemplateConstant                    = "Checking whether %s is an ancestor of %s in %s"
	gitAncestrySuccessTemplateConstant                  = "%s is an ancestor of %s in %s"
	gitAncestryNegativeTemplateConstant                 = "%s is not an ancestor of %s in %s"
	gitAncestryFailureTemplateConstant                  = "Failed to compare %s with %s in %s (exit code %d%s)"
	gitAncestryExecutionFailureTemplateConstant         = "Unable to compare %s with %s in %s: %s"
	gitRevisionStartTemplateConstant                    = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant                  = "%s in %s resolved to %s"
	gitRevisionEmptySuccessTemplateConstant             = "%s in %s did not resolve to a revision"
	gitRevisionFailureTemplateConstant                  = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant         = "Unable to resolve %s in %s: %s"
	gitDivergenceStartTemplateConstant                  = "Counting commits for %s in %s"
	gitDivergenceSuccessTemplateConstant                = "Counted commits for %s in %s: %s"
	gitDivergenceFailureTemplateConstant                = "Failed to count commits for %s in %s (exit code %d%s)"
	gitDivergenceExecutionFailureTemplateConstant       = "Unable to count commits for %s in %s: %s"
	gitStatusStartTemplateConstant                      = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant                    = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant                    = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant           = "Unable to review working tree status in %s: %s"
	gitCurrentBranchStartTemplateConstant               = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant             = "Current branch in %s is %s"
	gitCurrentBranchDetachedSuccessTemplateConstant     = "%s is in a detached HEAD state"
	gitCurrentBranchFailureTemplateConstant             = "Failed to identify current branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionFailureTemplateConstant    = "Unable to identify current branch in %s: %s"
	gitNegativeAnswerExitCodeConstant                   = 1
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

// IsExpectedNegativeResult reports whether a non-zero exit is an answer rather than an error,
// as with "merge-base --is-ancestor" or "rev-parse --verify" exiting 1.
func (formatter CommandMessageFormatter) IsExpectedNegativeResult(command ShellCommand, result ExecutionResult) bool {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 || result.ExitCode != gitNegativeAnswerExitCodeConstant {
		return false
	}
	switch strings.TrimSpace(command.Details.Arguments[0]) {
	case gitMergeBaseSubcommandNameConstant:
		return containsArgument(command.Details.Arguments, gitIsAncestorFlagConstant)
	case gitRevParseSubcommandNameConstant:
		return containsArgument(command.Details.Arguments, gitVerifyFlagConstant)
	default:
		return false
	}
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, result, failure, stage)
	case gitSparseCheckoutSubcommandNameConstant:
		return formatter.describeGitSparseCheckoutMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, result, failure, stage)
	case gitMergeSubcommandNameConstant:
		return formatter.describeGitMergeMessage(command, result, failure, stage)
	case gitMergeBaseSubcommandNameConstant:
		return formatter.describeGitMergeBaseMessage(command, result, failure, stage)
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitRevListSubcommandNameConstant:
		return formatter.describeGitRevListMessage(command, result, failure, stage)
	case gitStatusSubcommandNameConstant:
		return formatter.describeGitStatusMessage(command, result, failure, stage)
	case gitBranchSubcommandNameConstant:
		return formatter.describeGitBranchMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	positionalArguments := formatter.extractPositionalArguments(command.Details.Arguments[1:])
	source := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 0))
	destination := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 1))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, source, destination)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, source, destination)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, source, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, source, destination, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitSparseCheckoutMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	patterns := formatter.ensureValue(formatter.joinReferences(formatter.extractArgumentsAfterTerminator(command.Details.Arguments)))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitSparseCheckoutStartTemplateConstant, patterns, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitSparseCheckoutSuccessTemplateConstant, patterns, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitSparseCheckoutFailureTemplateConstant, patterns, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitSparseCheckoutExecutionFailureTemplateConstant, patterns, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := formatter.extractPositionalArguments(command.Details.Arguments[1:])
	trimmedRemote := strings.TrimSpace(formatter.argumentAtIndex(positionalArguments, 0))
	if len(trimmedRemote) == 0 {
		trimmedRemote = gitFetchAllRemotesLabelConstant
	}
	joinedReferences := emptyStringConstant
	if len(positionalArguments) > 1 {
		joinedReferences = formatter.joinReferences(positionalArguments[1:])
	}

	switch stage {
	case messageStageStart:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchStartTemplateConstant, joinedReferences, trimmedRemote, workingDirectory)
		}
		return fmt.Sprintf(gitFetchWithoutRefsStartTemplateConstant, trimmedRemote, workingDirectory)
	case messageStageSuccess:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchSuccessTemplateConstant, joinedReferences, trimmedRemote, workingDirectory)
		}
		return fmt.Sprintf(gitFetchWithoutRefsSuccessTemplateConstant, trimmedRemote, workingDirectory)
	case messageStageFailure:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchFailureTemplateConstant, joinedReferences, trimmedRemote, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		}
		return fmt.Sprintf(gitFetchWithoutRefsFailureTemplateConstant, trimmedRemote, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, joinedReferences, trimmedRemote, workingDirectory, formatter.describeFailure(failure))
		}
		return fmt.Sprintf(gitFetchWithoutRefsExecutionFailureTemplateConstant, trimmedRemote, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMergeMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	reference := formatter.ensureValue(formatter.argumentAtIndex(formatter.extractPositionalArguments(command.Details.Arguments[1:]), 0))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitMergeStartTemplateConstant, workingDirectory, reference)
	case messageStageSuccess:
		return fmt.Sprintf(gitMergeSuccessTemplateConstant, workingDirectory, reference)
	case messageStageFailure:
		return fmt.Sprintf(gitMergeFailureTemplateConstant, workingDirectory, reference, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitMergeExecutionFailureTemplateConstant, workingDirectory, reference, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMergeBaseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if !containsArgument(command.Details.Arguments, gitIsAncestorFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := formatter.extractPositionalArguments(command.Details.Arguments[1:])
	ancestor := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 0))
	descendant := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 1))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitAncestryStartTemplateConstant, ancestor, descendant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitAncestrySuccessTemplateConstant, ancestor, descendant, workingDirectory)
	case messageStageFailure:
		if formatter.IsExpectedNegativeResult(command, result) {
			return fmt.Sprintf(gitAncestryNegativeTemplateConstant, ancestor, descendant, workingDirectory)
		}
		return fmt.Sprintf(gitAncestryFailureTemplateConstant, ancestor, descendant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitAncestryExecutionFailureTemplateConstant, ancestor, descendant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	reference := formatter.resolveRevisionReference(command.Details.Arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		trimmed := strings.TrimSpace(result.StandardOutput)
		if len(trimmed) == 0 {
			return fmt.Sprintf(gitRevisionEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, reference, workingDirectory, trimmed)
	case messageStageFailure:
		if formatter.IsExpectedNegativeResult(command, result) {
			return fmt.Sprintf(gitRevisionEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRevisionExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevListMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	reference := formatter.resolveRevisionReference(command.Details.Arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitDivergenceStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		counts := strings.Join(strings.Fields(result.StandardOutput), commandArgumentsJoinSeparatorConstant)
		return fmt.Sprintf(gitDivergenceSuccessTemplateConstant, reference, workingDirectory, formatter.ensureValue(counts))
	case messageStageFailure:
		return fmt.Sprintf(gitDivergenceFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitDivergenceExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitStatusMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitStatusFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitStatusExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitBranchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if !containsArgument(command.Details.Arguments, gitShowCurrentFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCurrentBranchStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		trimmed := strings.TrimSpace(result.StandardOutput)
		if len(trimmed) == 0 {
			return fmt.Sprintf(gitCurrentBranchDetachedSuccessTemplateConstant, workingDirectory)
		}
		return fmt.Sprintf(gitCurrentBranchSuccessTemplateConstant, workingDirectory, trimmed)
	case messageStageFailure:
		return fmt.Sprintf(gitCurrentBranchFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCurrentBranchExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := describeCommand(command)
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func (formatter CommandMessageFormatter) resolveRevisionReference(arguments []string) string {
	if len(arguments) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	lastArgument := strings.TrimSpace(arguments[len(arguments)-1])
	if len(lastArgument) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return lastArgument
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

// extractPositionalArguments drops flags; everything after "--" is positional.
func (formatter CommandMessageFormatter) extractPositionalArguments(arguments []string) []string {
	positionalArguments := []string{}
	terminatorSeen := false
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 {
			continue
		}
		if !terminatorSeen && trimmed == argumentTerminatorConstant {
			terminatorSeen = true
			continue
		}
		if !terminatorSeen && strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		positionalArguments = append(positionalArguments, trimmed)
	}
	return positionalArguments
}

func (formatter CommandMessageFormatter) extractArgumentsAfterTerminator(arguments []string) []string {
	for index, argument := range arguments {
		if strings.TrimSpace(argument) == argumentTerminatorConstant {
			return arguments[index+1:]
		}
	}
	return nil
}

func (formatter CommandMessageFormatter) joinReferences(references []string) string {
	cleaned := make([]string, 0, len(references))
	for _, reference := range references {
		trimmed := strings.TrimSpace(reference)
		if len(trimmed) == 0 {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return strings.Join(cleaned, referencesJoinSeparatorConstant)
}
