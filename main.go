// The main package for the ranksync executable.
package main

import (
	"github.com/antyra/ranksync/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
