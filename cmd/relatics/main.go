package main

import (
	"os"

	"relatics.dev/relatics/internal/cli"
)

// Set via -ldflags at release time; the version itself lives in
// internal/version.
var (
	commit = "none"
	date   = "unknown"
)

func main() {
	rootCmd := cli.NewRootCmd(commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
