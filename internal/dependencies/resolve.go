package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/gitpartial/internal/execshell"
	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/ui"
)

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
// Console logging routes command lifecycle events through the human-readable event logger.
func ResolveGitExecutor(existing gitgateway.GitExecutor, logger *zap.Logger, humanReadableLogging bool) (gitgateway.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	executorOptions := []execshell.ShellExecutorOption{}
	if humanReadableLogging {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveGateway returns the provided gateway or constructs a CLI-backed one from the executor.
func ResolveGateway(existing gitgateway.Gateway, executor gitgateway.GitExecutor) (gitgateway.Gateway, error) {
	if existing != nil {
		return existing, nil
	}
	return gitgateway.NewCLIGateway(executor)
}

// ResolveMetadataStore returns the provided store or constructs one with the given options.
func ResolveMetadataStore(existing *metadata.Store, options metadata.StoreOptions) *metadata.Store {
	if existing != nil {
		return existing
	}
	return metadata.NewStore(options)
}
