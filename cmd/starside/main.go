// Package main is the entry point for the starside CLI.
//
// Usage:
//
//	starside [flags] <command> [args]
//
// Commands:
//
//	eval     - Evaluate an expression and print the result
//	exec     - Execute a script file or inline source
//	call     - Call a script function with JSON arguments
//	import   - Import a module or names from it
//	run      - Run a script, delivering its events until it finishes
//	image    - Request an image from the script image provider
//	serve    - Expose the interpreter to remote UIs over WebSocket
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/starside/cmd/starside/commands"
	"github.com/haivivi/starside/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(err))
		os.Exit(1)
	}
}
