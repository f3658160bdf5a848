package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dropbox/internal/audit"
)

// NewJournalCommand creates and returns the journal subcommand
func NewJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the run journal",
	}

	cmd.AddCommand(newJournalRunsCommand())
	cmd.AddCommand(newJournalStatsCommand())
	cmd.AddCommand(newJournalEventsCommand())

	return cmd
}

func newJournalRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs <journal-file>",
		Short: "List recorded runs, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return journalRuns(cmd, args[0], limit)
		},
		SilenceUsage: true,
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show, 0 for all")
	return cmd
}

func newJournalStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <journal-file>",
		Short: "Aggregate file outcomes across runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			since, _ := cmd.Flags().GetDuration("since")
			top, _ := cmd.Flags().GetInt("top")
			asJSON, _ := cmd.Flags().GetBool("json")
			opts := audit.StatsOptions{TopN: top}
			if since > 0 {
				opts.Since = time.Now().Add(-since)
			}
			return journalStats(cmd, args[0], opts, asJSON)
		},
		SilenceUsage: true,
	}
	cmd.Flags().Duration("since", 0, "only count events newer than this, e.g. 24h")
	cmd.Flags().Int("top", 5, "number of failure reasons to show, 0 for all")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func newJournalEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <journal-file>",
		Short: "Print journal events as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter audit.EventFilter
			run, _ := cmd.Flags().GetString("run")
			filter.RunID = audit.RunID(run)
			filter.Inbox, _ = cmd.Flags().GetString("inbox")
			types, _ := cmd.Flags().GetStringSlice("type")
			for _, t := range types {
				filter.EventTypes = append(filter.EventTypes, audit.EventType(strings.ToUpper(t)))
			}
			return journalEvents(cmd, args[0], filter)
		},
		SilenceUsage: true,
	}
	cmd.Flags().String("run", "", "only events of this run")
	cmd.Flags().String("inbox", "", "only events of this inbox")
	cmd.Flags().StringSlice("type", nil, "only these event types, e.g. failed,archived")
	return cmd
}

func journalRuns(cmd *cobra.Command, path string, limit int) error {
	events, err := audit.ReadEvents(path)
	if err != nil {
		return err
	}
	runs := audit.ListRuns(events)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		ended := "running"
		if r.EndTime != nil {
			ended = r.EndTime.Sub(r.StartTime).Round(time.Second).String()
		}
		rows = append(rows, []string{
			string(r.RunID),
			r.StartTime.Local().Format(time.DateTime),
			ended,
			strconv.Itoa(r.Summary.Processed),
			strconv.Itoa(r.Summary.Failed),
			strconv.Itoa(r.Summary.Skipped),
			strconv.Itoa(r.Summary.Archived),
		})
	}

	out := newOutput(cmd)
	out.Table([]string{"RUN", "STARTED", "DURATION", "PROCESSED", "FAILED", "SKIPPED", "ARCHIVED"}, rows)
	return nil
}

func journalStats(cmd *cobra.Command, path string, opts audit.StatsOptions, asJSON bool) error {
	events, err := audit.ReadEvents(path)
	if err != nil {
		return err
	}
	stats := audit.AggregateStats(events, opts)

	out := newOutput(cmd)
	if asJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		out.Info("%s", data)
		return nil
	}

	out.Heading("%d runs", stats.Runs)
	names := make([]string, 0, len(stats.ByInbox))
	for name := range stats.ByInbox {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, summaryRow(name, stats.ByInbox[name]))
	}
	rows = append(rows, summaryRow("total", stats.Totals))
	out.Table([]string{"INBOX", "CLAIMED", "PROCESSED", "FAILED", "SKIPPED", "ARCHIVED"}, rows)

	if len(stats.TopFailures) > 0 {
		reasons := make([]string, 0, len(stats.TopFailures))
		for reason := range stats.TopFailures {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool {
			if stats.TopFailures[reasons[i]] != stats.TopFailures[reasons[j]] {
				return stats.TopFailures[reasons[i]] > stats.TopFailures[reasons[j]]
			}
			return reasons[i] < reasons[j]
		})
		out.Heading("Failure reasons")
		for _, reason := range reasons {
			out.Info("  %-20s %d", reason, stats.TopFailures[reason])
		}
	}
	return nil
}

func summaryRow(name string, s audit.RunSummary) []string {
	return []string{
		name,
		strconv.Itoa(s.Claimed),
		strconv.Itoa(s.Processed),
		strconv.Itoa(s.Failed),
		strconv.Itoa(s.Skipped),
		strconv.Itoa(s.Archived),
	}
}

func journalEvents(cmd *cobra.Command, path string, filter audit.EventFilter) error {
	events, err := audit.ReadEvents(path)
	if err != nil {
		return err
	}

	out := newOutput(cmd)
	for _, e := range audit.FilterEvents(events, filter) {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		out.Info("%s", data)
	}
	return nil
}
