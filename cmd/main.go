package main

import (
	"fmt"
	"os"

	"github.com/pytoccaz/keycloak-token/cmd/gettoken"
)

func main() {
	args := os.Args[1:]

	// Accept an explicit "get-token" subcommand, but default to it since it
	// is the only command.
	if len(args) > 0 && args[0] == "get-token" {
		args = args[1:]
	} else if len(args) > 0 && args[0] == "help" {
		fmt.Fprintln(os.Stderr, "Usage: keycloak-token [get-token] [options]")
		gettoken.Run([]string{"-h"})
		return
	}

	gettoken.Run(args)
}
