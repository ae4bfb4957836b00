package status

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/dependencies"
	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/utils"
)

const (
	commandUseConstant                    = "status"
	commandShortDescriptionConstant       = "Show the state of the partial checkout"
	commandLongDescriptionConstant        = "status reports the current branch relative to its remote-tracking branch, the last synced commit, the recorded sparse-checkout paths, and local changes. It never modifies the repository."
	commandExecutionErrorTemplateConstant = "status failed: %w"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	flagRemoteNameConstant                = "remote"
	flagRemoteDescriptionConstant         = "Remote whose tracking branch the current branch is compared with"
	flagFetchNameConstant                 = "fetch"
	flagFetchDescriptionConstant          = "Fetch from the remote before comparing (use --fetch=false to stay offline)"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the status Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	GitExecutor                  gitgateway.GitExecutor
	Gateway                      gitgateway.Gateway
	WorkingDirectory             string
}

// Build constructs the status command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagRemoteNameConstant, defaults.Remote, flagRemoteDescriptionConstant)
	command.Flags().Bool(flagFetchNameConstant, defaults.Fetch, flagFetchDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	workingDirectory, workingDirectoryError := utils.NewCommandContextAccessor().ResolveWorkingDirectory(command.Context(), builder.WorkingDirectory)
	if workingDirectoryError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)))
	}

	configuration := builder.resolveConfiguration()
	if command.Flags().Changed(flagRemoteNameConstant) {
		remoteName, _ := command.Flags().GetString(flagRemoteNameConstant)
		configuration.Remote = remoteName
		configuration = configuration.Sanitize()
	}
	if command.Flags().Changed(flagFetchNameConstant) {
		configuration.Fetch, _ = command.Flags().GetBool(flagFetchNameConstant)
	}

	logger := builder.resolveLogger()
	executor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.humanReadableLoggingEnabled())
	if executorError != nil {
		return executorError
	}
	gateway, gatewayError := dependencies.ResolveGateway(builder.Gateway, executor)
	if gatewayError != nil {
		return gatewayError
	}

	service, serviceError := NewService(Dependencies{Gateway: gateway, Logger: logger})
	if serviceError != nil {
		return serviceError
	}

	report, collectError := service.Collect(command.Context(), Options{
		WorkingDirectory: workingDirectory,
		Remote:           configuration.Remote,
		Fetch:            configuration.Fetch,
	})
	if collectError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, collectError)
	}

	if writeError := WriteReport(utils.NewFlushingWriter(command.OutOrStdout()), report); writeError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", writeError))
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}
