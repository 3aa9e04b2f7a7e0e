package main

import (
	"os"

	"prompt2web_server/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
