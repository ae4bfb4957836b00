package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitpartial/internal/clone"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/smartpull"
	"github.com/temirov/gitpartial/internal/status"
)

const (
	testConfigurationFileNameConstant = "config.yaml"
	testConfigurationContentConstant  = "common:\n  log_level: debug\n  log_format: structured\ntools:\n  status:\n    remote: mirror\n    fetch: false\n  metadata:\n    lock_timeout: 250ms\n"
)

func decodeEmbeddedConfiguration(testInstance *testing.T) ApplicationConfiguration {
	testInstance.Helper()
	content, contentType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, configurationTypeConstant, contentType)

	var rawConfiguration map[string]any
	require.NoError(testInstance, yaml.Unmarshal(content, &rawConfiguration))

	var configuration ApplicationConfiguration
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		Result:      &configuration,
		ErrorUnused: true,
	})
	require.NoError(testInstance, decoderError)
	require.NoError(testInstance, decoder.Decode(rawConfiguration))
	return configuration
}

func executeApplication(testInstance *testing.T, application *Application, arguments ...string) (string, error) {
	testInstance.Helper()
	outputBuffer := &bytes.Buffer{}
	application.rootCommand.SetOut(outputBuffer)
	application.rootCommand.SetErr(outputBuffer)
	application.rootCommand.SetArgs(arguments)
	executionError := application.Execute()
	return outputBuffer.String(), executionError
}

func TestEmbeddedDefaultsMatchCommandDefaults(testInstance *testing.T) {
	configuration := decodeEmbeddedConfiguration(testInstance)

	require.Equal(testInstance, "error", configuration.Common.LogLevel)
	require.Equal(testInstance, "console", configuration.Common.LogFormat)
	require.Equal(testInstance, clone.DefaultCommandConfiguration(), configuration.Tools.Clone)
	require.Equal(testInstance, status.DefaultCommandConfiguration(), configuration.Tools.Status)
	require.Equal(testInstance, smartpull.DefaultCommandConfiguration(), configuration.Tools.SmartPull)
	require.Equal(testInstance, metadata.DefaultConfiguration(), configuration.Tools.Metadata)
}

func TestEmbeddedDefaultConfigurationReturnsCopy(testInstance *testing.T) {
	first, _ := EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, first)
	first[0] = '#'

	second, _ := EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, first[0], second[0])
}

func TestNewApplicationRegistersCommands(testInstance *testing.T) {
	application := NewApplication()

	registered := map[string]bool{}
	for _, command := range application.rootCommand.Commands() {
		registered[command.Name()] = true
	}

	for _, expectedName := range []string{"clone", "add-paths", "status", "smart-pull"} {
		require.True(testInstance, registered[expectedName], expectedName)
	}

	for _, flagName := range []string{configFileFlagNameConstant, logLevelFlagNameConstant, logFormatFlagNameConstant} {
		require.NotNil(testInstance, application.rootCommand.PersistentFlags().Lookup(flagName), flagName)
	}
}

func TestApplicationLoadsEmbeddedDefaults(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	application := NewApplication()

	output, executionError := executeApplication(testInstance, application)
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, applicationNameConstant)

	require.Equal(testInstance, "error", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "blob:none", application.configuration.Tools.Clone.Filter)
	require.Equal(testInstance, "origin", application.configuration.Tools.Status.Remote)
	require.True(testInstance, application.configuration.Tools.Status.Fetch)
	require.Equal(testInstance, "origin", application.configuration.Tools.SmartPull.Remote)
	require.Equal(testInstance, metadata.DefaultLockTimeout, application.configuration.Tools.Metadata.LockTimeout)
	require.True(testInstance, application.humanReadableLoggingEnabled())
}

func TestApplicationConfigurationSources(testInstance *testing.T) {
	testCases := []struct {
		name        string
		environment map[string]string
		arguments   []string
		assertion   func(*testing.T, ApplicationConfiguration)
	}{
		{
			name:      "ConfigurationFile",
			arguments: []string{"--" + configFileFlagNameConstant},
			assertion: func(testInstance *testing.T, configuration ApplicationConfiguration) {
				require.Equal(testInstance, "debug", configuration.Common.LogLevel)
				require.Equal(testInstance, "structured", configuration.Common.LogFormat)
				require.Equal(testInstance, "mirror", configuration.Tools.Status.Remote)
				require.False(testInstance, configuration.Tools.Status.Fetch)
				require.Equal(testInstance, 250*time.Millisecond, configuration.Tools.Metadata.LockTimeout)
				require.Equal(testInstance, "blob:none", configuration.Tools.Clone.Filter)
			},
		},
		{
			name:      "FlagsOverrideConfigurationFile",
			arguments: []string{"--" + logLevelFlagNameConstant, "warn", "--" + logFormatFlagNameConstant, "console", "--" + configFileFlagNameConstant},
			assertion: func(testInstance *testing.T, configuration ApplicationConfiguration) {
				require.Equal(testInstance, "warn", configuration.Common.LogLevel)
				require.Equal(testInstance, "console", configuration.Common.LogFormat)
				require.Equal(testInstance, "mirror", configuration.Tools.Status.Remote)
			},
		},
		{
			name: "EnvironmentOverridesConfigurationFile",
			environment: map[string]string{
				"GITPARTIAL_TOOLS_SMART_PULL_REMOTE": "upstream",
				"GITPARTIAL_TOOLS_CLONE_FILTER":      "tree:0",
			},
			arguments: []string{"--" + configFileFlagNameConstant},
			assertion: func(testInstance *testing.T, configuration ApplicationConfiguration) {
				require.Equal(testInstance, "upstream", configuration.Tools.SmartPull.Remote)
				require.Equal(testInstance, "tree:0", configuration.Tools.Clone.Filter)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			temporaryDirectory := testInstance.TempDir()
			changeWorkingDirectory(testInstance, temporaryDirectory)
			configurationPath := filepath.Join(temporaryDirectory, testConfigurationFileNameConstant)
			require.NoError(testInstance, os.WriteFile(configurationPath, []byte(testConfigurationContentConstant), 0o600))
			for environmentName, environmentValue := range testCase.environment {
				testInstance.Setenv(environmentName, environmentValue)
			}

			application := NewApplication()
			_, executionError := executeApplication(testInstance, application, append(testCase.arguments, configurationPath)...)
			require.NoError(testInstance, executionError)
			testCase.assertion(testInstance, application.configuration)
		})
	}
}

func TestApplicationRejectsUnknownLogLevel(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	application := NewApplication()

	_, executionError := executeApplication(testInstance, application, "--"+logLevelFlagNameConstant, "verbose")
	require.ErrorContains(testInstance, executionError, "unable to create logger")
}

func TestSyncLoggerInstanceToleratesNilAndNop(testInstance *testing.T) {
	application := &Application{}
	require.NoError(testInstance, application.syncLoggerInstance(nil))
	require.NoError(testInstance, application.syncLoggerInstance(zap.NewNop()))
}

// changeWorkingDirectory mirrors testing.T.Chdir, which requires Go 1.24.
func changeWorkingDirectory(testInstance *testing.T, directory string) {
	testInstance.Helper()
	originalDirectory, getwdError := os.Getwd()
	require.NoError(testInstance, getwdError)
	absoluteDirectory, absError := filepath.Abs(directory)
	require.NoError(testInstance, absError)
	testInstance.Setenv("PWD", absoluteDirectory)
	require.NoError(testInstance, os.Chdir(absoluteDirectory))
	testInstance.Cleanup(func() {
		if chdirError := os.Chdir(originalDirectory); chdirError != nil {
			panic("changeWorkingDirectory: restoring working directory: " + chdirError.Error())
		}
	})
}
