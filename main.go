// The main package for the feedvet executable.
package main

import (
	"github.com/newsdesk/feedvet/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
