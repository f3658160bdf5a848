package cmd

import (
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"dropbox/internal/config"
	"dropbox/internal/dropbox"
	"dropbox/internal/orchestrator"
)

// NewListCommand creates and returns the list subcommand
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <config-file>",
		Short: "List the files in one inbox directory",
		Long: `List the files in one directory of an inbox, applying the inbox filter
and ignore patterns. --dir selects target (default), processing,
processed or error. --inbox may be omitted when only one inbox is
configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inbox, _ := cmd.Flags().GetString("inbox")
			dir, _ := cmd.Flags().GetString("dir")
			return listFiles(cmd, args[0], inbox, dir)
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("inbox", "", "inbox name")
	cmd.Flags().String("dir", dropbox.DirTarget.String(), "directory: target, processing, processed or error")

	return cmd
}

func listFiles(cmd *cobra.Command, path, inbox, dir string) error {
	kind, err := dropbox.ParseDirKind(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if inbox == "" && len(cfg.Inboxes) == 1 {
		inbox = cfg.Inboxes[0].Name
	}

	files, err := orchestrator.List(cfg, inbox, kind)
	if err != nil {
		return err
	}
	sort.Strings(files)

	out := newOutput(cmd)
	for _, f := range files {
		if out.IsVerbose() {
			out.Info("%s", f)
		} else {
			out.Info("%s", filepath.Base(f))
		}
	}
	return nil
}
