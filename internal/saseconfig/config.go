// Package saseconfig reads the host's merged sase configuration. Only the
// keys this provider consumes are modeled; the host owns the full schema.
package saseconfig

import (
	"path/filepath"

	"github.com/sase-run/sase-github/internal/utils"
)

const (
	configurationNameConstant       = "sase"
	configurationTypeConstant       = "yaml"
	environmentPrefixConstant       = "SASE"
	configDirectoryNameConstant     = ".config"
	saseConfigDirectoryNameConstant = "sase"
	githubUsernameConfigurationKey  = "github_username"
	githubUsernameDefaultValue      = ""
)

// Settings models the sase configuration keys this provider reads.
type Settings struct {
	GitHubUsername string `mapstructure:"github_username"`
}

// Loader resolves sase settings from configuration files and environment.
type Loader struct {
	configurationLoader *utils.ConfigurationLoader
}

// NewLoader constructs a loader searching the standard sase config location
// (~/.config/sase) with the SASE environment prefix.
func NewLoader(homeDirectory string) *Loader {
	searchPaths := []string{
		filepath.Join(homeDirectory, configDirectoryNameConstant, saseConfigDirectoryNameConstant),
	}
	return &Loader{
		configurationLoader: utils.NewConfigurationLoader(
			configurationNameConstant,
			configurationTypeConstant,
			environmentPrefixConstant,
			searchPaths,
		),
	}
}

// Load resolves sase settings. An explicit configuration file path overrides
// the search paths; missing configuration yields defaults without error.
func (loader *Loader) Load(configurationFilePath string) (Settings, error) {
	defaultValues := map[string]any{
		githubUsernameConfigurationKey: githubUsernameDefaultValue,
	}

	var settings Settings
	_, loadError := loader.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &settings)
	if loadError != nil {
		return Settings{}, loadError
	}
	return settings, nil
}

// GitHubUsername resolves the configured GitHub username, or an empty string
// when it is not set.
func (loader *Loader) GitHubUsername(configurationFilePath string) (string, error) {
	settings, loadError := loader.Load(configurationFilePath)
	if loadError != nil {
		return "", loadError
	}
	return settings.GitHubUsername, nil
}
