package main

import (
	"os"

	"github.com/joho/godotenv"

	"math-shorts-pipeline/cmd/mathshorts/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// .env is for local development; deployments set the variables directly
	_ = godotenv.Load()

	commands.SetVersionInfo(version, commit)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
