// Package utils holds the ambient plumbing shared by every git-partial command:
// the Viper-backed ConfigurationLoader, the zap LoggerFactory, the
// CommandContextAccessor carrying per-invocation values, and FlushingWriter
// for command output.
package utils
