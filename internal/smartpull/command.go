package smartpull

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/dependencies"
	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/utils"
)

const (
	commandUseConstant                    = "smart-pull"
	commandShortDescriptionConstant       = "Fast-forward the partial checkout to its remote"
	commandLongDescriptionConstant        = "smart-pull fetches the remote, fast-forwards the current branch when local history has not diverged, updates only the files inside the sparse checkout, and records the new HEAD as the last synced commit."
	commandExecutionErrorTemplateConstant = "smart-pull failed: %w"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	flagRemoteNameConstant                = "remote"
	flagRemoteDescriptionConstant         = "Remote to pull from"
	advancedSummaryTemplateConstant       = "Fast-forwarded %s from %s to %s\n"
	upToDateSummaryTemplateConstant       = "%s is already up to date with %s at %s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the smart-pull Cobra command.
type CommandBuilder struct {
	LoggerProvider                LoggerProvider
	HumanReadableLoggingProvider  func() bool
	ConfigurationProvider         func() CommandConfiguration
	MetadataConfigurationProvider func() metadata.Configuration
	GitExecutor                   gitgateway.GitExecutor
	Gateway                       gitgateway.Gateway
	Store                         *metadata.Store
	WorkingDirectory              string
}

// Build constructs the smart-pull command.
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

	command.Flags().String(flagRemoteNameConstant, DefaultCommandConfiguration().Remote, flagRemoteDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	workingDirectory, workingDirectoryError := utils.NewCommandContextAccessor().ResolveWorkingDirectory(command.Context(), builder.WorkingDirectory)
	if workingDirectoryError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)))
	}

	configuration := builder.resolveConfiguration()
	if command.Flags().Changed(flagRemoteNameConstant) {
		configuration.Remote, _ = command.Flags().GetString(flagRemoteNameConstant)
		configuration = configuration.Sanitize()
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
	store := dependencies.ResolveMetadataStore(builder.Store, metadata.StoreOptions{
		Logger:      logger,
		LockTimeout: builder.resolveMetadataConfiguration().LockTimeout,
	})

	service, serviceError := NewService(Dependencies{Gateway: gateway, Store: store, Logger: logger})
	if serviceError != nil {
		return serviceError
	}

	result, pullError := service.Pull(command.Context(), Options{WorkingDirectory: workingDirectory, Remote: configuration.Remote})
	if pullError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, pullError)
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	if result.Advanced() {
		fmt.Fprintf(output, advancedSummaryTemplateConstant, result.Branch, result.PreviousCommit, result.Metadata.LastSyncedCommit)
	} else {
		fmt.Fprintf(output, upToDateSummaryTemplateConstant, result.Branch, result.Upstream, result.Metadata.LastSyncedCommit)
	}
	if outputError := output.Err(); outputError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", outputError))
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveMetadataConfiguration() metadata.Configuration {
	if builder.MetadataConfigurationProvider == nil {
		return metadata.DefaultConfiguration()
	}
	return builder.MetadataConfigurationProvider().Sanitize()
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
