package toolchain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/applaunch/internal/config"
	"github.com/mmr-tortoise/applaunch/internal/model"
)

// CommandError reports a command that ran but exited non-zero.
type CommandError struct {
	// Command is the command line, for diagnostics.
	Command string

	// ExitCode is the process exit status (-1 if killed by a signal).
	ExitCode int

	// Stderr is the trimmed standard error output, if captured.
	Stderr string

	Err error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that none of a tool's candidate commands resolved.
type NotFoundError struct {
	Tool string

	// Tried maps each candidate to the reason it was rejected.
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (tried: %s)", e.Tool, strings.Join(e.Tried, "; "))
}

// Stdio is the set of streams handed to the application child process.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runner resolves commands on the execution path and runs them.
//
// It holds no state beyond the lookup function. The lookup is swappable so
// that callers with a different notion of PATH can plug in their own.
type Runner struct {
	lookPath func(file string) (string, error)
}

// NewRunner creates a Runner backed by exec.LookPath.
func NewRunner() *Runner {
	return &Runner{lookPath: exec.LookPath}
}

// Resolve finds the first usable candidate command for tool.
//
// A candidate is usable when it resolves on PATH and its version query
// exits zero. Requiring the version query matters on Windows, where a
// "python" alias that only opens the Store is on PATH but cannot run
// anything.
//
// Returns a *NotFoundError when no candidate is usable.
func (r *Runner) Resolve(ctx context.Context, tool config.Tool) (*model.ToolInfo, error) {
	notFound := &NotFoundError{Tool: tool.DisplayName}

	for _, candidate := range tool.Commands {
		path, err := r.lookPath(candidate)
		if err != nil {
			notFound.Tried = append(notFound.Tried, fmt.Sprintf("%s: not on PATH", candidate))
			continue
		}

		out, err := runTool(ctx, "", path, tool.VersionArgs...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			notFound.Tried = append(notFound.Tried, fmt.Sprintf("%s: %v", candidate, err))
			continue
		}

		return &model.ToolInfo{
			Name:    tool.DisplayName,
			Command: candidate,
			Path:    path,
			Version: firstLine(out),
		}, nil
	}

	return nil, notFound
}

// Install runs the package manager with args in dir.
//
// Standard output is discarded (installs are quiet); standard error is kept
// for the error message. A non-zero exit returns a *CommandError.
func (r *Runner) Install(ctx context.Context, dir string, pm *model.ToolInfo, args ...string) error {
	// #nosec G204: the command comes from the launcher configuration.
	cmd := exec.CommandContext(ctx, pm.Path, args...)
	cmd.Dir = dir
	cmd.Stdout = io.Discard

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return commandError(pm.Command, args, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// Start runs the interpreter on entryPoint in dir with the given stdio and
// blocks until the child exits.
//
// The child's exit status is returned as-is. A child killed by a signal
// reports exit code 1. An error is returned only when the child could not
// be started at all.
func (r *Runner) Start(ctx context.Context, dir string, interpreter *model.ToolInfo, entryPoint string, args []string, stdio Stdio) (int, error) {
	argv := append([]string{entryPoint}, args...)

	// #nosec G204: interpreter and entry point come from the launcher configuration.
	cmd := exec.CommandContext(ctx, interpreter.Path, argv...)
	cmd.Dir = dir
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = int(model.ExitGeneralError)
		}
		return code, nil
	}
	return 0, fmt.Errorf("failed to start %s %s: %w", interpreter.Command, entryPoint, err)
}

// runTool executes name with args in dir and returns the combined output.
//
// Many interpreters print their version on stderr (Python 2 did), so both
// streams are merged. On failure the output is included in the error.
func runTool(ctx context.Context, dir, name string, args ...string) (string, error) {
	// #nosec G204: args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", commandError(name, args, strings.TrimSpace(out.String()), err)
	}
	return out.String(), nil
}

// commandError converts an exec error into a *CommandError when the process
// ran, and wraps it otherwise.
func commandError(name string, args []string, stderr string, err error) error {
	cmdLine := strings.TrimSpace(name + " " + strings.Join(args, " "))

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{
			Command:  cmdLine,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr,
			Err:      err,
		}
	}
	return fmt.Errorf("%s: %w", cmdLine, err)
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}
