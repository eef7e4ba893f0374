// Command notion is the entry point for the notion-clone notes service.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// page CRUD and question-answering API.
package main

import (
	"fmt"
	"os"

	"github.com/IslandRhythms/notion-clone/cmd/notion/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
