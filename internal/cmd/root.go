// Package cmd implements the dropbox command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"dropbox/internal/output"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dropbox
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dropbox",
		Short: "Polling drop-box directory processor",
		Long: `dropbox watches inbox directories and moves every file that lands in
them through processing into a processed directory, or into an error
directory when processing fails. Nothing is ever deleted.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error (overrides the configuration)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "print extra detail")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewJournalCommand())
	cmd.AddCommand(NewInitCommand())

	return cmd
}

// newOutput builds a printer on the command's writers. Color is used only
// when writing to a terminal stdout.
func newOutput(cmd *cobra.Command) *output.Output {
	cfg := output.DefaultConfig()
	cfg.Writer = cmd.OutOrStdout()
	cfg.ErrWriter = cmd.ErrOrStderr()
	if cfg.Writer != os.Stdout {
		cfg.IsTTY = false
	}
	cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	return output.New(cfg)
}
