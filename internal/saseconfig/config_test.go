package saseconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/saseconfig"
)

const (
	testConfiguredUsernameConstant = "acme-dev"
	testSaseConfigContentConstant  = "github_username: acme-dev\nother_key: ignored\n"
)

func writeSaseConfig(testInstance *testing.T, homeDirectory string) string {
	configDirectory := filepath.Join(homeDirectory, ".config", "sase")
	require.NoError(testInstance, os.MkdirAll(configDirectory, 0o755))
	configurationFilePath := filepath.Join(configDirectory, "sase.yaml")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testSaseConfigContentConstant), 0o600))
	return configurationFilePath
}

func TestGitHubUsernameFromConfigFile(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	writeSaseConfig(testInstance, homeDirectory)

	loader := saseconfig.NewLoader(homeDirectory)
	username, loadError := loader.GitHubUsername("")
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testConfiguredUsernameConstant, username)
}

func TestGitHubUsernameDefaultsToEmpty(testInstance *testing.T) {
	loader := saseconfig.NewLoader(testInstance.TempDir())
	username, loadError := loader.GitHubUsername("")
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, username)
}

func TestGitHubUsernameEnvironmentOverride(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	writeSaseConfig(testInstance, homeDirectory)
	testInstance.Setenv("SASE_GITHUB_USERNAME", "acme-ops")

	loader := saseconfig.NewLoader(homeDirectory)
	username, loadError := loader.GitHubUsername("")
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "acme-ops", username)
}

func TestGitHubUsernameExplicitFile(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	configurationFilePath := writeSaseConfig(testInstance, homeDirectory)

	loader := saseconfig.NewLoader(testInstance.TempDir())
	username, loadError := loader.GitHubUsername(configurationFilePath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testConfiguredUsernameConstant, username)
}
