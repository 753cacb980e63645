package main

import (
	"fmt"
	"os"

	"github.com/peepybureau/bpi/cmd"
	"github.com/peepybureau/bpi/internal/conf"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings, version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
