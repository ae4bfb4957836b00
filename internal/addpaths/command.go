package addpaths

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/dependencies"
	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/utils"
)

const (
	commandUseConstant                    = "add-paths <pattern>..."
	commandShortDescriptionConstant       = "Add path patterns to the partial checkout"
	commandLongDescriptionConstant        = "add-paths extends the sparse-checkout pattern set of the partial clone containing the working directory, materializes the newly selected files, and records the merged set."
	commandExecutionErrorTemplateConstant = "add-paths failed: %w"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	addedSummaryTemplateConstant          = "Added %d path pattern(s) to %s\n"
	unchangedSummaryTemplateConstant      = "No new paths to add; %s is unchanged\n"
	patternsHeaderConstant                = "Sparse checkout paths:\n"
	patternTemplateConstant               = "  - %s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the add-paths Cobra command.
type CommandBuilder struct {
	LoggerProvider                LoggerProvider
	HumanReadableLoggingProvider  func() bool
	MetadataConfigurationProvider func() metadata.Configuration
	GitExecutor                   gitgateway.GitExecutor
	Gateway                       gitgateway.Gateway
	Store                         *metadata.Store
	WorkingDirectory              string
}

// Build constructs the add-paths command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	workingDirectory, workingDirectoryError := utils.NewCommandContextAccessor().ResolveWorkingDirectory(command.Context(), builder.WorkingDirectory)
	if workingDirectoryError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)))
	}

	patterns := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		patterns = append(patterns, strings.TrimSpace(argument))
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

	result, addError := service.AddPaths(command.Context(), Options{WorkingDirectory: workingDirectory, Patterns: patterns})
	if addError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, addError)
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	if result.Changed() {
		fmt.Fprintf(output, addedSummaryTemplateConstant, len(result.AddedPatterns), result.RepositoryRoot)
	} else {
		fmt.Fprintf(output, unchangedSummaryTemplateConstant, result.RepositoryRoot)
	}
	fmt.Fprint(output, patternsHeaderConstant)
	for _, pattern := range result.Metadata.Paths {
		fmt.Fprintf(output, patternTemplateConstant, pattern)
	}
	if outputError := output.Err(); outputError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", outputError))
	}
	return nil
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
