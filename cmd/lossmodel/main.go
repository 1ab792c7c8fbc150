package main

import (
	"os"

	"github.com/wonny/lossmodel/cmd/lossmodel/commands"
)

// main is the entry point for the lossmodel CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/lossmodel [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
