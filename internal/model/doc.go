// Package model defines the domain types and value objects for the
// applaunch CLI.
//
// This package contains pure data structures with no external dependencies.
// Nothing here is persisted: tool versions are captured for display and the
// only value that outlives a run is the exit code handed back to the shell.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
