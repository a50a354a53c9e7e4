// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command sqlbind inspects databases and runs queries through the sqlbind
// providers.
package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/canonical/sqlbind/cmd/sqlbind/commands"
)

var (
	// Version information (set by build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	root := commands.NewRootCommand(Version + " (commit: " + Commit + ")")
	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}
