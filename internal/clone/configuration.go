package clone

import "strings"

const (
	defaultCloneFilterConstant     = "blob:none"
	configurationFilterKeyConstant = "filter"
)

// CommandConfiguration captures configuration values for the clone command.
type CommandConfiguration struct {
	Filter string `mapstructure:"filter"`
}

// DefaultCommandConfiguration provides baseline configuration values for clone.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Filter: defaultCloneFilterConstant}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationFilterKeyConstant: defaults.Filter,
	}
}

// Sanitize trims configuration values. An empty filter requests a full clone.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Filter = strings.TrimSpace(configuration.Filter)
	return sanitized
}
