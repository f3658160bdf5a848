package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dropbox/internal/config"
	"dropbox/internal/logging"
	"dropbox/internal/orchestrator"
	"dropbox/internal/signal"
)

// ErrRunFailed is returned when a run ends with failed files or a stopped
// monitor. Details have already been printed.
var ErrRunFailed = errors.New("run finished with errors")

// NewRunCommand creates and returns the run subcommand
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Monitor the configured inboxes until interrupted",
		Long: `Monitor every configured inbox (or only those named with --inbox) until
SIGINT or SIGTERM. SIGUSR1 pauses polling and SIGUSR2 resumes it.

Exit code: 0 on a clean shutdown, 1 if any file failed or a monitor
stopped on an error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inboxes, _ := cmd.Flags().GetStringSlice("inbox")
			return runDropBoxes(cmd, args[0], inboxes)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringSlice("inbox", nil, "run only the named inboxes")

	return cmd
}

func runDropBoxes(cmd *cobra.Command, path string, only []string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := selectInboxes(cfg, only); err != nil {
		return err
	}

	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level, _ = cmd.Flags().GetString("log-level")
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}

	sig := signal.New()
	ctx, cancel := sig.Context(cmd.Context())
	defer cancel()
	signal.NotifyOS(ctx, sig)

	out := newOutput(cmd)
	out.Verbose("Monitoring %d inboxes", len(cfg.Inboxes))

	summary, err := orchestrator.Run(ctx, cfg, orchestrator.Options{
		Logger:  logger,
		Version: Version,
		Pauser:  sig,
	})
	if err != nil {
		return err
	}

	for _, in := range summary.Inboxes {
		if in.Err != nil {
			out.Error("Inbox %s stopped: %v", in.Name, in.Err)
		}
		out.Verbose("%s: %d processed, %d failed, %d skipped, %d early wake-ups",
			in.Name, in.Stats.Processed, in.Stats.Failed, in.Stats.Skipped, in.Wakeups)
	}
	out.Info(summary.PrintSummary())
	if summary.RunID != "" {
		out.Verbose("Run %s", summary.RunID)
	}

	if summary.HasErrors() {
		return ErrRunFailed
	}
	return nil
}

// selectInboxes narrows cfg to the named inboxes, in configuration order.
func selectInboxes(cfg *config.Configuration, names []string) error {
	if len(names) == 0 {
		return nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := cfg.Inbox(name); !ok {
			return fmt.Errorf("unknown inbox %q", name)
		}
		want[name] = true
	}
	kept := cfg.Inboxes[:0]
	for _, in := range cfg.Inboxes {
		if want[in.Name] {
			kept = append(kept, in)
		}
	}
	cfg.Inboxes = kept
	return nil
}
