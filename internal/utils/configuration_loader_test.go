package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/utils"
)

const (
	testEnvironmentPrefixConstant     = "TESTSASE"
	testUsernameKeyConstant           = "github_username"
	testDefaultUsernameConstant       = ""
	testFileUsernameConstant          = "acme-dev"
	testEnvironmentUsernameConstant   = "acme-ops"
	testEmbeddedUsernameConstant      = "acme-embedded"
	testConfigFileNameConstant        = "sase.yaml"
	testConfigContentTemplateConstant = "github_username: %s\n"
	testConfigurationNameConstant     = "sase"
	testConfigurationTypeConstant     = "yaml"
)

type configurationFixture struct {
	GitHubUsername string `mapstructure:"github_username"`
}

func TestConfigurationLoaderLoadConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                string
		embeddedUsername    string
		fileUsername        string
		environmentUsername string
		expectedUsername    string
	}{
		{
			name:             "embedded_configuration_merges",
			embeddedUsername: testEmbeddedUsernameConstant,
			expectedUsername: testEmbeddedUsernameConstant,
		},
		{
			name:             "defaults_are_applied",
			expectedUsername: testDefaultUsernameConstant,
		},
		{
			name:             "config_file_overrides_defaults",
			fileUsername:     testFileUsernameConstant,
			expectedUsername: testFileUsernameConstant,
		},
		{
			name:                "environment_overrides_file",
			fileUsername:        testFileUsernameConstant,
			environmentUsername: testEnvironmentUsernameConstant,
			expectedUsername:    testEnvironmentUsernameConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			tempDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileUsername) > 0 {
				configurationFilePath = filepath.Join(tempDirectory, testConfigFileNameConstant)
				configurationContent := fmt.Sprintf(testConfigContentTemplateConstant, testCase.fileUsername)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600))
			}

			if len(testCase.environmentUsername) > 0 {
				environmentVariableName := testEnvironmentPrefixConstant + "_GITHUB_USERNAME"
				testInstance.Setenv(environmentVariableName, testCase.environmentUsername)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{tempDirectory})
			if len(testCase.embeddedUsername) > 0 {
				configurationLoader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testConfigContentTemplateConstant, testCase.embeddedUsername)), testConfigurationTypeConstant)
			}

			defaultValues := map[string]any{
				testUsernameKeyConstant: testDefaultUsernameConstant,
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedUsername, loadedConfiguration.GitHubUsername)

			if len(configurationFilePath) > 0 {
				require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			} else {
				require.Empty(testInstance, metadata.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderSearchPaths(testInstance *testing.T) {
	searchDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(searchDirectory, testConfigFileNameConstant)
	configurationContent := fmt.Sprintf(testConfigContentTemplateConstant, testFileUsernameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600))

	configurationLoader := utils.NewConfigurationLoader(
		testConfigurationNameConstant,
		testConfigurationTypeConstant,
		testEnvironmentPrefixConstant,
		[]string{searchDirectory},
	)

	loadedConfiguration := configurationFixture{}
	metadata, loadError := configurationLoader.LoadConfiguration("", map[string]any{}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testFileUsernameConstant, loadedConfiguration.GitHubUsername)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
}
