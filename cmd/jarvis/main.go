// Command jarvis runs the assistant outside Lambda.
package main

import (
	"fmt"
	"os"

	"jarvis-agent/cmd/jarvis/commands"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
