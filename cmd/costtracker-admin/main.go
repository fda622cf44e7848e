package main

import (
	"os"

	"costtracker/internal/cli"
	"costtracker/internal/commands"
)

func main() {
	cli.LoadEnvFile()
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
