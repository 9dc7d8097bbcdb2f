package pathutils_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/sase-run/sase-github/internal/utils/path"
)

func TestHomeExpanderExpandsTildePrefixes(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "/home/tester", nil
	})

	testCases := []struct {
		name          string
		candidatePath string
		expectedPath  string
	}{
		{name: "bare_tilde", candidatePath: "~", expectedPath: "/home/tester"},
		{name: "tilde_prefix", candidatePath: "~/projects/widget", expectedPath: "/home/tester/projects/widget"},
		{name: "absolute_path", candidatePath: "/srv/projects/widget", expectedPath: "/srv/projects/widget"},
		{name: "embedded_tilde", candidatePath: "/srv/~cache", expectedPath: "/srv/~cache"},
		{name: "empty_path", candidatePath: "", expectedPath: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidatePath))
		})
	}
}

func TestHomeExpanderKeepsPathWhenHomeUnavailable(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home directory")
	})

	require.Equal(testInstance, "~/projects/widget", expander.Expand("~/projects/widget"))
}
