// The main package for the ycscout executable.
package main

import (
	"github.com/startuplens/ycscout/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
