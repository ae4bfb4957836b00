package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const environmentAssignmentSeparatorConstant = "="

// EnvironmentProvider returns the base environment inherited by child processes.
type EnvironmentProvider func() []string

// OSCommandRunner starts commands as child processes. Standard output and
// standard error are captured in full; git output for the operations this
// tool performs is small.
type OSCommandRunner struct {
	environmentProvider EnvironmentProvider
}

// NewOSCommandRunner constructs a runner that inherits the process environment.
func NewOSCommandRunner() *OSCommandRunner {
	return NewOSCommandRunnerWithEnvironment(os.Environ)
}

// NewOSCommandRunnerWithEnvironment constructs a runner whose children start from provider's environment.
func NewOSCommandRunnerWithEnvironment(provider EnvironmentProvider) *OSCommandRunner {
	if provider == nil {
		provider = os.Environ
	}
	return &OSCommandRunner{environmentProvider: provider}
}

// Run executes command and waits for it to exit. A non-zero exit status is
// reported through ExecutionResult.ExitCode, not as an error. Cancellation of
// executionContext kills the child and surfaces the context error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executable.Dir = command.Details.WorkingDirectory
	executable.Env = runner.mergeEnvironment(command.Details.EnvironmentVariables)

	var standardOutput, standardError bytes.Buffer
	executable.Stdout = &standardOutput
	executable.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}

	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if !errors.As(runError, &exitError) {
		return ExecutionResult{}, runError
	}
	result.ExitCode = exitError.ExitCode()
	return result, nil
}

// mergeEnvironment appends overrides in key order so repeated runs produce an
// identical environment. Later entries win when a key repeats.
func (runner *OSCommandRunner) mergeEnvironment(overrides map[string]string) []string {
	environmentProvider := runner.environmentProvider
	if environmentProvider == nil {
		environmentProvider = os.Environ
	}
	baseEnvironment := environmentProvider()
	if len(overrides) == 0 {
		return baseEnvironment
	}

	overrideKeys := make([]string, 0, len(overrides))
	for overrideKey := range overrides {
		overrideKeys = append(overrideKeys, overrideKey)
	}
	sort.Strings(overrideKeys)

	mergedEnvironment := make([]string, 0, len(baseEnvironment)+len(overrideKeys))
	for _, assignment := range baseEnvironment {
		assignmentKey, _, _ := strings.Cut(assignment, environmentAssignmentSeparatorConstant)
		if _, overridden := overrides[assignmentKey]; overridden {
			continue
		}
		mergedEnvironment = append(mergedEnvironment, assignment)
	}
	for _, overrideKey := range overrideKeys {
		mergedEnvironment = append(mergedEnvironment, overrideKey+environmentAssignmentSeparatorConstant+overrides[overrideKey])
	}
	return mergedEnvironment
}
