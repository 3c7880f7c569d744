package main

import (
	"os"

	"idregistry/cmd/regctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
