// Package cli implements the cobra-based CLI for applaunch.
//
// The root command is the launcher itself, so a double-click or a bare
// "applaunch" runs the full bootstrap sequence. The check and config
// subcommands are diagnostics for operators and packagers.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/applaunch/internal/config"
	"github.com/mmr-tortoise/applaunch/internal/i18n"
	"github.com/mmr-tortoise/applaunch/internal/launcher"
	"github.com/mmr-tortoise/applaunch/internal/model"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput switches check/config output and error output to JSON.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// exitFunc terminates the process. Tests replace it to observe exit codes.
var exitFunc = os.Exit

// rootFlags holds the persistent flags that locate and configure the launcher.
type rootFlags struct {
	// dir overrides the base directory (default: the executable's directory).
	dir string

	// configPath points at an explicit launcher.yaml / launcher.json.
	configPath string

	// noPause skips waiting for Enter after a failure.
	noPause bool
}

// NewRootCommand creates and configures the root cobra command.
//
// Running the root command launches the application. Arguments after "--"
// are passed to the application untouched.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	// The launcher is meant to be double-clicked on Windows. Cobra would
	// otherwise refuse to run when started from Explorer.
	cobra.MousetrapHelpText = ""

	rootCmd := &cobra.Command{
		Use:   "applaunch [-- app-args...]",
		Short: "Install dependencies and start the application",
		Long: `applaunch checks that Python and pip are available, verifies that
requirements.txt sits next to the launcher, installs the dependencies and
then starts app/main.py. The launcher exits with the application's exit code,
or 1 if any of the checks or the install fails.

Every setting can be overridden with a launcher.yaml or launcher.json file
placed next to the launcher.

Examples:
  applaunch
  applaunch --no-pause -- --debug
  applaunch check --json`,

		Args: cobra.ArbitraryArgs,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors: Execute formats errors itself (text or JSON).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr())
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, flags, args)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.dir, "dir", "",
		"Base directory holding the manifest and the application (default: the launcher's directory)")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Path to a launcher.yaml or launcher.json file (default: looked up in the base directory)")
	rootCmd.PersistentFlags().BoolVar(&flags.noPause, "no-pause", false,
		"Do not wait for Enter after a failure")

	rootCmd.AddCommand(NewCheckCommand(flags))
	rootCmd.AddCommand(NewConfigCommand(flags))

	return rootCmd
}

// Execute runs the root command and exits the process with the resulting
// code. This is the main entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	exitFunc(handleError(rootCmd.ErrOrStderr(), rootCmd.Execute()))
}

// handleError translates an error returned by a command into an exit code,
// printing it unless the operator has already seen a diagnostic for it.
//
// CLIError types carry their own exit codes (the application's code for a
// relayed exit); other errors default to exit code 1.
func handleError(w io.Writer, err error) int {
	if err == nil {
		return int(model.ExitSuccess)
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Reported {
			if cliErr.Stage.IsPrecondition() {
				slog.Debug("launch aborted", slog.String("stage", cliErr.Stage.String()),
					slog.Int("exit_code", int(cliErr.Code)), slog.String("error", cliErr.Error()))
			} else {
				slog.Debug("exit code relayed", slog.String("stage", cliErr.Stage.String()),
					slog.Int("exit_code", int(cliErr.Code)))
			}
		} else {
			printError(w, cliErr.Message, cliErr.Err)
		}
		return int(cliErr.Code)
	}

	printError(w, err.Error(), nil)
	return int(model.ExitGeneralError)
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		printJSONError(w, message, underlying, "")
		return
	}

	if underlying != nil {
		_, _ = fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		_, _ = fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// printJSONError writes {"error": {"message", "detail", "stage"}}, leaving
// out detail and stage when they are empty.
func printJSONError(w io.Writer, message string, underlying error, stage model.Stage) {
	errMap := map[string]interface{}{
		"message": message,
	}
	if underlying != nil {
		errMap["detail"] = underlying.Error()
	}
	if stage != "" {
		errMap["stage"] = stage.String()
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": errMap}, "", "  ")
	_, _ = fmt.Fprintln(w, string(data))
}

// setupLogging installs the process-wide slog logger. Logs go to w (stderr)
// as text; operator diagnostics do not go through the logger.
func setupLogging(w io.Writer) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// session is the resolved launcher setup shared by every command.
type session struct {
	baseDir    string
	cfg        *config.Config
	configPath string
	printer    *i18n.Printer
}

// loadSession resolves the base directory and loads the configuration.
func loadSession(flags *rootFlags) (*session, error) {
	baseDir, err := config.ResolveBaseDir(flags.dir)
	if err != nil {
		return nil, err
	}

	s := &session{baseDir: baseDir}
	if flags.configPath != "" {
		s.cfg, err = config.LoadFile(flags.configPath, runtime.GOOS)
		s.configPath = flags.configPath
	} else {
		s.cfg, s.configPath, err = config.Load(baseDir, runtime.GOOS)
	}
	if err != nil {
		return nil, err
	}

	s.printer = i18n.NewPrinter(s.cfg.Locale)
	slog.Debug("configuration loaded",
		slog.String("path", s.configPath),
		slog.String("base_dir", baseDir),
		slog.String("locale", s.printer.Tag().String()))
	return s, nil
}

// newLauncher wires a Launcher to the command's streams. Diagnostics go to
// diag; the application inherits the command's stdin/stdout/stderr.
func newLauncher(cmd *cobra.Command, s *session, flags *rootFlags, diag io.Writer) *launcher.Launcher {
	var pauser launcher.Pauser = launcher.NoPause{}
	if !flags.noPause {
		pauser = launcher.NewLinePauser(cmd.InOrStdin(), diag, s.printer.Sprintf(i18n.MsgPressEnter))
	}

	return launcher.New(launcher.Options{
		Config:  s.cfg,
		BaseDir: s.baseDir,
		Printer: s.printer,
		Pauser:  pauser,
		Logger:  slog.Default(),
		Stdin:   cmd.InOrStdin(),
		Stdout:  diag,
		Stderr:  cmd.ErrOrStderr(),
	})
}

// runLaunch is the root command: the full bootstrap sequence followed by
// the application. A non-zero application exit becomes a Reported CLIError
// carrying that code, so Execute relays it without printing anything more.
func runLaunch(cmd *cobra.Command, flags *rootFlags, args []string) error {
	s, err := loadSession(flags)
	if err != nil {
		return err
	}

	res, err := newLauncher(cmd, s, flags, cmd.OutOrStdout()).Run(cmd.Context(), args)
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &model.CLIError{
			Code:     model.ExitCode(res.ExitCode),
			Stage:    model.StageLaunch,
			Message:  fmt.Sprintf("application exited with code %d", res.ExitCode),
			Reported: true,
		}
	}
	return nil
}
