package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dropbox/internal/config"
)

// NewInitCommand creates and returns the init subcommand
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <config-file>",
		Short: "Write a starter configuration and create its directories",
		Long: `Write a configuration with a single inbox whose directories live under
--root (default: the directory of the configuration file), and create
those directories. An existing configuration is never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			return initConfig(cmd, args[0], root)
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("root", "", "directory holding the inbox directories")

	return cmd
}

func initConfig(cmd *cobra.Command, path, root string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if root == "" {
		root = filepath.Dir(path)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	cfg := config.Sample(root)
	out := newOutput(cmd)
	for _, in := range cfg.Inboxes {
		for _, dir := range []string{in.Target, in.Processing, in.Processed, in.Error} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			out.Verbose("Created %s", dir)
		}
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	out.Success("Wrote %s", path)
	return nil
}
