package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/applaunch/internal/config"
	"github.com/mmr-tortoise/applaunch/internal/model"
)

// NewConfigCommand creates the "config" cobra command, which prints the
// effective configuration (defaults merged with launcher.yaml/json).
func NewConfigCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective launcher configuration",
		Long: `Print the configuration the launcher would use: the built-in defaults for
this platform overlaid with launcher.yaml or launcher.json, if present.
The output is valid YAML and can be saved as launcher.yaml as a starting point.

Examples:
  applaunch config > launcher.yaml
  applaunch config --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(flags)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), s)
		},
	}
}

// printConfig writes the effective configuration as YAML (with the source
// as a leading comment) or as JSON.
func printConfig(w io.Writer, s *session) error {
	source := s.configPath
	if source == "" {
		source = "built-in defaults"
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Source  string         `json:"source"`
			BaseDir string         `json:"baseDir"`
			Config  *config.Config `json:"config"`
		}
		data, _ := json.MarshalIndent(resultJSON{Source: source, BaseDir: s.baseDir, Config: s.cfg}, "", "  ")
		_, _ = fmt.Fprintln(w, string(data))
		return nil
	}

	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render configuration", err)
	}
	_, _ = fmt.Fprintf(w, "# source: %s\n# base directory: %s\n%s", source, s.baseDir, data)
	return nil
}
