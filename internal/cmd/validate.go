package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"dropbox/internal/config"
)

// ErrInvalidConfig is returned when validation finds errors.
var ErrInvalidConfig = errors.New("configuration is invalid")

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Check a configuration file against the filesystem",
		Long: `Parse a configuration file and check, for every inbox:
  - all four directories and any extra directories exist
  - no directory is the target itself or nested inside it
  - no two inboxes share a target
  - the processing command can be found on PATH

Exit code: 0 if valid (warnings allowed), 1 if errors found`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd, args[0])
		},
		SilenceUsage: true,
	}

	return cmd
}

func validateConfig(cmd *cobra.Command, path string) error {
	out := newOutput(cmd)

	cfg, err := config.Load(path)
	if err != nil {
		out.Error("Validation failed: %v", err)
		return ErrInvalidConfig
	}
	out.Verbose("Parsed %d inboxes: %v", len(cfg.Inboxes), cfg.InboxNames())

	result := config.ValidateConfig(cfg)
	for _, w := range result.Warnings {
		out.Warn("warning: %s: %s", w.Field, w.Message)
	}
	for _, e := range result.Errors {
		out.Error("error: %s: %s", e.Field, e.Message)
	}

	if !result.Valid {
		out.Error("Validation failed with %d errors", len(result.Errors))
		return ErrInvalidConfig
	}
	out.Success("Configuration is valid (%d inboxes, %d warnings)", len(cfg.Inboxes), len(result.Warnings))
	return nil
}
