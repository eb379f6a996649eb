package model

import (
	"fmt"
	"slices"
	"time"
)

// Stage identifies one step of the launch sequence. The launcher runs the
// stages strictly in the order returned by Stages and stops at the first
// failed precondition.
//
// Each stage doubles as an error category:
//
//	interpreter      → missing interpreter
//	package-manager  → missing package manager
//	manifest         → missing dependency manifest
//	install          → dependency installation failed
//	launch           → the application exited non-zero (reported, not fatal)
type Stage string

const (
	// StageInterpreter checks that the runtime interpreter resolves on PATH
	// and answers its version query.
	StageInterpreter Stage = "interpreter"

	// StagePackageManager checks the interpreter's package manager the same way.
	StagePackageManager Stage = "package-manager"

	// StageManifest checks that the dependency manifest exists in the
	// launcher's base directory.
	StageManifest Stage = "manifest"

	// StageInstall installs the manifest's dependencies.
	StageInstall Stage = "install"

	// StageLaunch runs the application entry point as a child process.
	StageLaunch Stage = "launch"
)

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{StageInterpreter, StagePackageManager, StageManifest, StageInstall, StageLaunch}
}

// String returns the string representation of Stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid checks whether the Stage value is one of the predefined stages.
func (s Stage) IsValid() bool {
	return slices.Contains(Stages(), s)
}

// IsPrecondition reports whether a failure in this stage is fatal to the
// launcher. Only the application's own exit status is not.
func (s Stage) IsPrecondition() bool {
	return s.IsValid() && s != StageLaunch
}

// ToolInfo describes a command that was resolved on the execution path.
type ToolInfo struct {
	// Name is the human-readable tool name used in diagnostics (e.g., "Python").
	Name string `json:"name" yaml:"name"`

	// Command is the candidate command that resolved (e.g., "python3").
	Command string `json:"command" yaml:"command"`

	// Path is the absolute path returned by PATH lookup.
	Path string `json:"path" yaml:"path"`

	// Version is the first line the tool printed for its version query.
	// It is only ever displayed, never parsed.
	Version string `json:"version" yaml:"version"`
}

// String returns "Name (Version)" or just the name when the version is unknown.
func (t *ToolInfo) String() string {
	if t.Version == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Version)
}

// Environment is the outcome of the three presence checks.
type Environment struct {
	// BaseDir is the directory the launcher resolves every relative path
	// against: its own location, not the caller's working directory.
	BaseDir string `json:"baseDir"`

	Interpreter    *ToolInfo `json:"interpreter"`
	PackageManager *ToolInfo `json:"packageManager"`

	// ManifestPath is the absolute path of the dependency manifest.
	ManifestPath string `json:"manifestPath"`
}

// Result is the outcome of a complete launch.
type Result struct {
	Environment *Environment `json:"environment"`

	// ExitCode is the application's exit status, relayed as the launcher's own.
	ExitCode int `json:"exitCode"`

	// Duration is how long the application ran.
	Duration time.Duration `json:"duration"`
}

// ExitCode defines the launcher's own exit codes. Any other value seen by
// the caller comes from the application.
type ExitCode int

const (
	// ExitSuccess indicates the launcher and the application both succeeded.
	ExitSuccess ExitCode = 0

	// ExitGeneralError covers every precondition failure (missing
	// interpreter, package manager or manifest, failed install) as well as
	// configuration and usage errors.
	ExitGeneralError ExitCode = 1
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Stage is the launch stage that failed. Empty for errors raised
	// outside the launch sequence (configuration, flags).
	Stage Stage

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error

	// Reported is set once the operator has already seen a localized
	// diagnostic for this error. The CLI layer does not print it again.
	Reported bool
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// NewStageError creates a fatal precondition error for the given stage.
// Precondition failures always exit with ExitGeneralError.
func NewStageError(stage Stage, message string, err error) *CLIError {
	return &CLIError{Code: ExitGeneralError, Stage: stage, Message: message, Err: err}
}
