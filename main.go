// ./main.go
package main

import (
	"github.com/sumant2123/Travel-Itineary-Planner/cmd"
)

// main is the entry point for the bookingnav application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
