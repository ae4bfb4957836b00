package execshell

import (
	"strings"

	"go.uber.org/zap"
)

const (
	commandStartedLogMessageConstant         = "git command started"
	commandCompletedLogMessageConstant       = "git command completed"
	commandFailedLogMessageConstant          = "git command failed"
	commandExecutionFailedLogMessageConstant = "git command could not run"
	logFieldCommandConstant                  = "command"
	logFieldArgumentsConstant                = "arguments"
	logFieldWorkingDirectoryConstant         = "working_directory"
	logFieldExitCodeConstant                 = "exit_code"
	logFieldStandardErrorConstant            = "stderr"
)

// CommandEventObserver receives lifecycle notifications for every command the
// executor runs. Implementations render progress for people (see internal/ui)
// or record it in the structured log.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	CommandExecutionFailed(command ShellCommand, failure error)
}

type discardingCommandEventObserver struct{}

func (discardingCommandEventObserver) CommandStarted(ShellCommand)                    {}
func (discardingCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}
func (discardingCommandEventObserver) CommandExecutionFailed(ShellCommand, error)     {}

// structuredCommandEventLogger writes lifecycle events at debug level and
// escalates unexpected non-zero exits to warnings. Exit codes that git uses
// to answer a yes/no question stay at debug level.
type structuredCommandEventLogger struct {
	logger    *zap.Logger
	formatter CommandMessageFormatter
}

func newStructuredCommandEventLogger(logger *zap.Logger) CommandEventObserver {
	return structuredCommandEventLogger{logger: logger}
}

func (eventLogger structuredCommandEventLogger) CommandStarted(command ShellCommand) {
	eventLogger.logger.Debug(commandStartedLogMessageConstant, commandFields(command)...)
}

func (eventLogger structuredCommandEventLogger) CommandCompleted(command ShellCommand, result ExecutionResult) {
	fields := append(commandFields(command), zap.Int(logFieldExitCodeConstant, result.ExitCode))
	if result.ExitCode == 0 || eventLogger.formatter.IsExpectedNegativeResult(command, result) {
		eventLogger.logger.Debug(commandCompletedLogMessageConstant, fields...)
		return
	}
	fields = append(fields, zap.String(logFieldStandardErrorConstant, strings.TrimSpace(result.StandardError)))
	eventLogger.logger.Warn(commandFailedLogMessageConstant, fields...)
}

func (eventLogger structuredCommandEventLogger) CommandExecutionFailed(command ShellCommand, failure error) {
	eventLogger.logger.Error(commandExecutionFailedLogMessageConstant, append(commandFields(command), zap.Error(failure))...)
}

func commandFields(command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}
}
