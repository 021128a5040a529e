package main

import (
	"os"

	"github.com/opd-ai/uwb/cmd/twrsim/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
