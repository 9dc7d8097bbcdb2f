package main

import (
	"fmt"
	"os"

	"github.com/sase-run/sase-github/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the sase-github command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
