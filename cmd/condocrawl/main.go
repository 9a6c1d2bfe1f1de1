// Package main is the entry point for the condocrawl CLI.
package main

import (
	"os"

	"github.com/DruizrGit/CondoPricePrediction/cmd/condocrawl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
