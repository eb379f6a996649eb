// Package config holds the launcher settings: which interpreter and package
// manager to look for, where the dependency manifest and the application
// entry point live, and which language diagnostics are printed in.
//
// Every setting has a per-platform default. An optional launcher.yaml or
// launcher.json (JSONC) next to the launcher overrides individual keys.
// No environment variables are consulted.
package config
