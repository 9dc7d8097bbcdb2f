package steps

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func runSubmitCommand(testInstance *testing.T, builder *SubmitCommandBuilder, arguments []string) (string, error) {
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	output := &bytes.Buffer{}
	command.SetOut(output)
	command.SetErr(output)
	command.SetArgs(arguments)

	executionError := command.Execute()
	return output.String(), executionError
}

func TestSubmitCommandFailsForUnknownChangeSpec(testInstance *testing.T) {
	builder := &SubmitCommandBuilder{
		Executor:      &scriptedExecutor{},
		FileSystem:    afero.NewMemMapFs(),
		HomeDirectory: testHomeDirectoryConstant,
	}

	_, executionError := runSubmitCommand(testInstance, builder, []string{"--name", "widget_fix_login"})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "not found")
}

func TestSubmitCommandRequiresName(testInstance *testing.T) {
	builder := &SubmitCommandBuilder{
		Executor:      &scriptedExecutor{},
		FileSystem:    afero.NewMemMapFs(),
		HomeDirectory: testHomeDirectoryConstant,
	}

	_, executionError := runSubmitCommand(testInstance, builder, nil)
	require.Error(testInstance, executionError)
}
