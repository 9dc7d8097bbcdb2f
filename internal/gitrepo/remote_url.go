package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpProtocolPrefixConstant          = "http://"
	httpsProtocolPrefixConstant         = "https://"
	gitUserPrefixConstant               = "git@"
	gitHubHostConstant                  = "github.com"
	gitSuffixConstant                   = ".git"
	pathSeparatorConstant               = "/"
	sshPathDelimiterConstant            = ":"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	unsupportedProtocolMessageConstant  = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// IsHostedRemote reports whether the remote URL points at a hosted git service
// rather than a local filesystem path.
func IsHostedRemote(remote string) bool {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return false
	}
	hostedPrefixes := []string{httpProtocolPrefixConstant, httpsProtocolPrefixConstant, gitUserPrefixConstant, sshProtocolPrefixConstant}
	for _, hostedPrefix := range hostedPrefixes {
		if strings.HasPrefix(trimmedRemote, hostedPrefix) {
			return true
		}
	}
	return false
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseSCPStyleRemote(strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), pathSeparatorConstant)
	case strings.HasPrefix(trimmedRemote, gitUserPrefixConstant):
		return parseSCPStyleRemote(trimmedRemote, sshPathDelimiterConstant)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHTTPSRemote(strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant))
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

func parseSCPStyleRemote(remote string, hostDelimiter string) (RemoteURL, error) {
	userSplitIndex := strings.Index(remote, "@")
	if userSplitIndex == -1 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	hostAndPath := remote[userSplitIndex+1:]
	hostSplitIndex := strings.Index(hostAndPath, hostDelimiter)
	if hostSplitIndex == -1 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	host := hostAndPath[:hostSplitIndex]
	pathSegments := strings.Split(strings.Trim(hostAndPath[hostSplitIndex+1:], pathSeparatorConstant), pathSeparatorConstant)
	if len(pathSegments) != 2 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	repositoryName := strings.TrimSuffix(pathSegments[1], gitSuffixConstant)
	if len(repositoryName) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	return RemoteURL{Protocol: RemoteProtocolSSH, Host: host, Owner: pathSegments[0], Repository: repositoryName}, nil
}

func parseHTTPSRemote(remote string) (RemoteURL, error) {
	pathSegments := strings.Split(strings.Trim(remote, pathSeparatorConstant), pathSeparatorConstant)
	if len(pathSegments) < 3 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	repositoryName := strings.TrimSuffix(pathSegments[len(pathSegments)-1], gitSuffixConstant)
	if len(repositoryName) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	return RemoteURL{
		Protocol:   RemoteProtocolHTTPS,
		Host:       pathSegments[0],
		Owner:      pathSegments[1],
		Repository: repositoryName,
	}, nil
}

// FormatRemoteURL creates a textual remote URL from a structured representation.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	if len(strings.TrimSpace(remote.Host)) == 0 || len(strings.TrimSpace(remote.Owner)) == 0 || len(strings.TrimSpace(remote.Repository)) == 0 {
		return "", RemoteURLParseError{Input: remote.Host, Message: invalidRemoteURLMessageConstant}
	}

	switch remote.Protocol {
	case RemoteProtocolSSH:
		return gitUserPrefixConstant + remote.Host + sshPathDelimiterConstant + remote.Owner + pathSeparatorConstant + remote.Repository + gitSuffixConstant, nil
	case RemoteProtocolHTTPS:
		return httpsProtocolPrefixConstant + remote.Host + pathSeparatorConstant + remote.Owner + pathSeparatorConstant + remote.Repository + gitSuffixConstant, nil
	default:
		return "", RemoteURLParseError{Input: string(remote.Protocol), Message: unsupportedProtocolMessageConstant}
	}
}

// GitHubRemoteURL builds the clone URL for a GitHub repository, preferring SSH
// when the configured username owns the repository.
func GitHubRemoteURL(owner string, repository string, configuredUsername string) (string, error) {
	remoteProtocol := RemoteProtocolHTTPS
	if len(configuredUsername) > 0 && configuredUsername == owner {
		remoteProtocol = RemoteProtocolSSH
	}
	return FormatRemoteURL(RemoteURL{Protocol: remoteProtocol, Host: gitHubHostConstant, Owner: owner, Repository: repository})
}
