package clone

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/dependencies"
	"github.com/temirov/gitpartial/internal/failure"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/utils"
	pathutils "github.com/temirov/gitpartial/internal/utils/path"
)

const (
	commandUseConstant                    = "clone <repo_url> <destination> --paths <pattern>..."
	commandShortDescriptionConstant       = "Clone only the paths matching the given patterns"
	commandLongDescriptionConstant        = "clone performs a filtered, sparse clone of repo_url into destination, checks out only the files matching the --paths patterns, and records the partial-clone metadata."
	commandExecutionErrorTemplateConstant = "clone failed: %w"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	flagPathsNameConstant                 = "paths"
	flagPathsDescriptionConstant          = "Glob pattern to check out; repeat the flag for more patterns"
	flagFilterNameConstant                = "filter"
	flagFilterDescriptionConstant         = "Object filter passed to git clone (empty for a full clone)"
	requiredArgumentCountConstant         = 2
	cloneSummaryTemplateConstant          = "Cloned %s into %s\n"
	cloneCommitTemplateConstant           = "Checked out commit %s\n"
	clonePatternsHeaderConstant           = "Sparse checkout paths:\n"
	clonePatternTemplateConstant          = "  - %s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the clone Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	GitExecutor                  gitgateway.GitExecutor
	Gateway                      gitgateway.Gateway
	HomeExpander                 *pathutils.HomeExpander
	WorkingDirectory             string
}

// Build constructs the clone command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.MinimumNArgs(requiredArgumentCountConstant),
		RunE:          builder.run,
	}

	command.Flags().StringArray(flagPathsNameConstant, nil, flagPathsDescriptionConstant)
	command.Flags().String(flagFilterNameConstant, DefaultCommandConfiguration().Filter, flagFilterDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, optionsError)
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

	result, cloneError := service.Clone(command.Context(), options)
	if cloneError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, cloneError)
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintf(output, cloneSummaryTemplateConstant, result.Remote.String(), result.RepositoryRoot)
	fmt.Fprintf(output, cloneCommitTemplateConstant, result.Metadata.LastSyncedCommit)
	fmt.Fprint(output, clonePatternsHeaderConstant)
	for _, pattern := range result.Metadata.Paths {
		fmt.Fprintf(output, clonePatternTemplateConstant, pattern)
	}
	if outputError := output.Err(); outputError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, failure.New(failure.KindIOFailure, "", outputError))
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (Options, error) {
	configuration := builder.resolveConfiguration()

	filterValue := configuration.Filter
	if command.Flags().Changed(flagFilterNameConstant) {
		flagFilterValue, _ := command.Flags().GetString(flagFilterNameConstant)
		filterValue = strings.TrimSpace(flagFilterValue)
	}

	flagPatterns, _ := command.Flags().GetStringArray(flagPathsNameConstant)
	patterns := trimPatterns(flagPatterns)
	patterns = append(patterns, trimPatterns(arguments[requiredArgumentCountConstant:])...)

	workingDirectory, workingDirectoryError := utils.NewCommandContextAccessor().ResolveWorkingDirectory(command.Context(), builder.WorkingDirectory)
	if workingDirectoryError != nil {
		return Options{}, failure.New(failure.KindIOFailure, "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError))
	}

	destination := arguments[1]
	if len(strings.TrimSpace(destination)) > 0 {
		homeExpander := builder.HomeExpander
		if homeExpander == nil {
			homeExpander = pathutils.NewHomeExpander()
		}
		destination = homeExpander.Resolve(workingDirectory, destination)
	}

	return Options{
		RemoteURL:   arguments[0],
		Destination: destination,
		Patterns:    patterns,
		Filter:      filterValue,
	}, nil
}

// trimPatterns treats every value as exactly one pattern. Inner whitespace
// is part of the pattern.
func trimPatterns(rawValues []string) []string {
	patterns := make([]string, 0, len(rawValues))
	for _, rawValue := range rawValues {
		patterns = append(patterns, strings.TrimSpace(rawValue))
	}
	return patterns
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
