// Command lecturecast turns slide decks and PDFs into narrated lectures from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spherical/lecturecast/cmd/lecturecast/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
