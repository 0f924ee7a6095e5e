package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewApplicationRegistersCommandGroups(testInstance *testing.T) {
	application := NewApplication()
	require.NotNil(testInstance, application.rootCommand)

	registeredNames := make(map[string]bool)
	for _, subCommand := range application.rootCommand.Commands() {
		registeredNames[subCommand.Name()] = true
	}
	for _, expectedName := range []string{"repo", "user", "maintainer", "workflow"} {
		require.True(testInstance, registeredNames[expectedName], expectedName)
	}
}

func TestNewApplicationDeclaresPersistentFlags(testInstance *testing.T) {
	application := NewApplication()
	persistentFlags := application.rootCommand.PersistentFlags()

	for _, flagName := range []string{"config", "log-level", "log-format"} {
		require.NotNil(testInstance, persistentFlags.Lookup(flagName), flagName)
	}
}

func TestEmbeddedDefaultConfigurationPresent(testInstance *testing.T) {
	configurationData, configurationType := EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, configurationData)
	require.NotEmpty(testInstance, configurationType)
}
