package smartpull

import "strings"

const (
	defaultRemoteNameConstant      = "origin"
	configurationRemoteKeyConstant = "remote"
)

// CommandConfiguration captures configuration values for the smart-pull command.
type CommandConfiguration struct {
	Remote string `mapstructure:"remote"`
}

// DefaultCommandConfiguration provides baseline configuration values for smart-pull.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Remote: defaultRemoteNameConstant}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	return map[string]any{
		rootKey + "." + configurationRemoteKeyConstant: DefaultCommandConfiguration().Remote,
	}
}

// Sanitize trims the remote name and restores the default when blank.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	if len(sanitized.Remote) == 0 {
		sanitized.Remote = defaultRemoteNameConstant
	}
	return sanitized
}
