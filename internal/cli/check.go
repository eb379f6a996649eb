package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/applaunch/internal/model"
)

// NewCheckCommand creates the "check" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCheckCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify Python, pip and the dependency manifest without installing",
		Long: `Run the three presence checks the launcher performs before installing:
the interpreter, its package manager and the dependency manifest.
Nothing is installed and the application is not started.

With --json, stdout carries the detected environment on success or an
{"error": {...}} object naming the failed stage, and the localized progress
lines go to stderr.

Examples:
  applaunch check
  applaunch check --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags)
		},
	}
}

// runCheck runs the presence checks. In JSON mode the localized progress
// lines go to stderr so stdout carries only the JSON document.
func runCheck(cmd *cobra.Command, flags *rootFlags) error {
	s, err := loadSession(flags)
	if err != nil {
		return err
	}

	diag := cmd.OutOrStdout()
	if IsJSONOutput() {
		diag = cmd.ErrOrStderr()
	}

	env, err := newLauncher(cmd, s, flags, diag).Check(cmd.Context())
	if err != nil {
		// The localized diagnostic already went to stderr; stdout still
		// gets a JSON document naming the failed stage.
		var cliErr *model.CLIError
		if IsJSONOutput() && errors.As(err, &cliErr) && cliErr.Reported {
			printJSONError(cmd.OutOrStdout(), cliErr.Message, cliErr.Err, cliErr.Stage)
		}
		return err
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(env, "", "  ")
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	return nil
}
