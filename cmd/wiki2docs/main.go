// Package main is the entry point for the wiki2docs CLI.
package main

import (
	"os"

	"github.com/jmylchreest/wiki2docs/cmd/wiki2docs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
