// Command scheduled imports, edits, validates, and analyzes Microsoft
// Project XML schedules from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/jra3/scheduled/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
