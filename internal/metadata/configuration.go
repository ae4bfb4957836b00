package metadata

import "time"

const configurationLockTimeoutKeyConstant = "lock_timeout"

// Configuration captures user-tunable metadata store settings.
type Configuration struct {
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// DefaultConfiguration provides baseline metadata store settings.
func DefaultConfiguration() Configuration {
	return Configuration{LockTimeout: DefaultLockTimeout}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	return map[string]any{
		rootKey + "." + configurationLockTimeoutKeyConstant: DefaultConfiguration().LockTimeout.String(),
	}
}

// Sanitize replaces a non-positive lock timeout with the default.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	if sanitized.LockTimeout <= 0 {
		sanitized.LockTimeout = DefaultLockTimeout
	}
	return sanitized
}
