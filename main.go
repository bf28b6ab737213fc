package main

import (
	"os"

	"github.com/temirov/git-manager/cmd/cli"
)

// main executes the git-manager command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		os.Exit(1)
	}
}
