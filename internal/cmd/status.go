package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dropbox/internal/bytefmt"
	"dropbox/internal/config"
	"dropbox/internal/orchestrator"
)

// NewStatusCommand creates and returns the status subcommand
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <config-file>",
		Short: "Show file counts for every inbox directory",
		Long: `Count the files in the target, processing, processed and error
directories of every inbox, and report whether a monitor currently holds
the inbox lock. Nothing is created or moved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd, args[0])
		},
		SilenceUsage: true,
	}

	return cmd
}

func showStatus(cmd *cobra.Command, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	result, err := orchestrator.Status(cfg)
	if err != nil {
		return err
	}

	out := newOutput(cmd)
	for _, in := range result.Inboxes {
		state := "idle"
		if in.Running {
			state = "running"
		}
		out.Heading("%s (%s)", in.Name, state)
		if in.Err != nil {
			out.Error("  %v", in.Err)
			continue
		}

		header := []string{"DIR", "FILES", "SIZE"}
		if out.IsVerbose() {
			header = append(header, "PATH")
		}
		rows := make([][]string, 0, len(in.Dirs))
		for _, d := range in.Dirs {
			row := []string{d.Kind.String(), strconv.Itoa(d.Count), strings.TrimSpace(bytefmt.Format(d.Bytes))}
			if out.IsVerbose() {
				row = append(row, d.Path)
			}
			rows = append(rows, row)
		}
		out.Table(header, rows)
	}
	out.Info("%d pending, %d failed", result.Pending, result.Failed)
	return nil
}
