// Package main is the entry point for the applaunch CLI.
//
// The binary is shipped next to the Python application it starts. It
// delegates all functionality to the internal/cli package.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development, they default to "dev", "none", and "unknown".
package main

import (
	"github.com/mmr-tortoise/applaunch/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
