// The main package for the sitesoft executable.
package main

import (
	"github.com/JakeFAU/sitesoft/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
