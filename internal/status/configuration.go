package status

import "strings"

const (
	defaultRemoteNameConstant      = "origin"
	configurationRemoteKeyConstant = "remote"
	configurationFetchKeyConstant  = "fetch"
)

// CommandConfiguration captures configuration values for the status command.
type CommandConfiguration struct {
	Remote string `mapstructure:"remote"`
	Fetch  bool   `mapstructure:"fetch"`
}

// DefaultCommandConfiguration provides baseline configuration values for status.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Remote: defaultRemoteNameConstant, Fetch: true}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationRemoteKeyConstant: defaults.Remote,
		rootKey + "." + configurationFetchKeyConstant:  defaults.Fetch,
	}
}

// Sanitize trims configuration values and restores the default remote when blank.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	if len(sanitized.Remote) == 0 {
		sanitized.Remote = defaultRemoteNameConstant
	}
	return sanitized
}
