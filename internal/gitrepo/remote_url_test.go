package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sase-run/sase-github/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedRemote gitrepo.RemoteURL
		expectFailure  bool
	}{
		{
			name:           "scp_style_ssh",
			input:          "git@github.com:acme/widget.git",
			expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "acme", Repository: "widget"},
		},
		{
			name:           "ssh_protocol",
			input:          "ssh://git@github.com/acme/widget.git",
			expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "acme", Repository: "widget"},
		},
		{
			name:           "https_protocol",
			input:          "https://github.com/acme/widget.git",
			expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "acme", Repository: "widget"},
		},
		{
			name:           "https_without_suffix",
			input:          "https://github.com/acme/widget",
			expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "acme", Repository: "widget"},
		},
		{
			name:          "local_path",
			input:         "/srv/repos/widget.git",
			expectFailure: true,
		},
		{
			name:          "empty_input",
			input:         "   ",
			expectFailure: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedRemote, parseError := gitrepo.ParseRemoteURL(testCase.input)
			if testCase.expectFailure {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedRemote, parsedRemote)
		})
	}
}

func TestFormatRemoteURL(testInstance *testing.T) {
	sshRendering, sshError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "acme", Repository: "widget"})
	require.NoError(testInstance, sshError)
	require.Equal(testInstance, "git@github.com:acme/widget.git", sshRendering)

	httpsRendering, httpsError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "acme", Repository: "widget"})
	require.NoError(testInstance, httpsError)
	require.Equal(testInstance, "https://github.com/acme/widget.git", httpsRendering)
}

func TestGitHubRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name               string
		owner              string
		configuredUsername string
		expectedURL        string
	}{
		{
			name:               "own_repository_uses_ssh",
			owner:              "acme",
			configuredUsername: "acme",
			expectedURL:        "git@github.com:acme/widget.git",
		},
		{
			name:               "foreign_repository_uses_https",
			owner:              "acme",
			configuredUsername: "someone-else",
			expectedURL:        "https://github.com/acme/widget.git",
		},
		{
			name:        "unconfigured_username_uses_https",
			owner:       "acme",
			expectedURL: "https://github.com/acme/widget.git",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			cloneURL, buildError := gitrepo.GitHubRemoteURL(testCase.owner, "widget", testCase.configuredUsername)
			require.NoError(testInstance, buildError)
			require.Equal(testInstance, testCase.expectedURL, cloneURL)
		})
	}
}

func TestIsHostedRemote(testInstance *testing.T) {
	require.True(testInstance, gitrepo.IsHostedRemote("git@github.com:acme/widget.git"))
	require.True(testInstance, gitrepo.IsHostedRemote("https://github.com/acme/widget.git"))
	require.False(testInstance, gitrepo.IsHostedRemote("/srv/repos/widget.git"))
	require.False(testInstance, gitrepo.IsHostedRemote(""))
}
