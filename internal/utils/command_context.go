package utils

import (
	"context"
	"os"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	workingDirectoryContextKeyConstant      = commandContextKey("workingDirectory")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return accessor.withString(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return accessor.stringValue(executionContext, configurationFilePathContextKeyConstant)
}

// WithWorkingDirectory attaches the directory commands resolve relative locations against.
func (accessor CommandContextAccessor) WithWorkingDirectory(parentContext context.Context, workingDirectory string) context.Context {
	return accessor.withString(parentContext, workingDirectoryContextKeyConstant, workingDirectory)
}

// WorkingDirectory extracts the working directory from the provided context.
// An empty stored value is reported as absent.
func (accessor CommandContextAccessor) WorkingDirectory(executionContext context.Context) (string, bool) {
	workingDirectory, available := accessor.stringValue(executionContext, workingDirectoryContextKeyConstant)
	if !available || len(workingDirectory) == 0 {
		return "", false
	}
	return workingDirectory, true
}

func (accessor CommandContextAccessor) withString(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func (accessor CommandContextAccessor) stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	if !available {
		return "", false
	}
	return value, true
}

// ResolveWorkingDirectory returns explicitDirectory when set, then the directory stored in executionContext,
// and finally the process working directory.
func (accessor CommandContextAccessor) ResolveWorkingDirectory(executionContext context.Context, explicitDirectory string) (string, error) {
	if trimmedDirectory := strings.TrimSpace(explicitDirectory); len(trimmedDirectory) > 0 {
		return trimmedDirectory, nil
	}
	if contextDirectory, available := accessor.WorkingDirectory(executionContext); available {
		return contextDirectory, nil
	}
	return os.Getwd()
}
