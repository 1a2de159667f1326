package main

import (
	"os"

	"github.com/wonny/graham/cmd/graham/commands"
)

// main is the entry point of the graham CLI
// ⭐ single CLI entry point: go run ./cmd/graham [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
