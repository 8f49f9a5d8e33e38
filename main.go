// The main package for the jobdata executable.
package main

import (
	"github.com/JakeFAU/jobdata-fetcher/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
