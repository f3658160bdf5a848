package audit

import (
	"sort"
	"time"
)

// Stats aggregates journal events across runs.
type Stats struct {
	Runs        int                   `json:"runs"`
	Totals      RunSummary            `json:"totals"`
	ByInbox     map[string]RunSummary `json:"byInbox"`
	TopFailures map[string]int        `json:"topFailures,omitempty"`
	First       time.Time             `json:"first"`
	Last        time.Time             `json:"last"`
}

// StatsOptions configures AggregateStats.
type StatsOptions struct {
	Since time.Time
	TopN  int // number of failure reasons to keep, 0 keeps all
}

// AggregateStats totals file events by inbox and by failure reason.
func AggregateStats(events []Event, opts StatsOptions) *Stats {
	stats := &Stats{
		ByInbox:     make(map[string]RunSummary),
		TopFailures: make(map[string]int),
	}
	runs := make(map[RunID]struct{})

	for _, e := range events {
		if !opts.Since.IsZero() && e.Timestamp.Before(opts.Since) {
			continue
		}
		if stats.First.IsZero() || e.Timestamp.Before(stats.First) {
			stats.First = e.Timestamp
		}
		if e.Timestamp.After(stats.Last) {
			stats.Last = e.Timestamp
		}
		if e.EventType == EventRunStart {
			runs[e.RunID] = struct{}{}
			continue
		}

		countEvent(&stats.Totals, e.EventType)
		if e.Inbox != "" {
			s := stats.ByInbox[e.Inbox]
			countEvent(&s, e.EventType)
			stats.ByInbox[e.Inbox] = s
		}
		if e.EventType == EventFailed && e.ReasonCode != "" {
			stats.TopFailures[string(e.ReasonCode)]++
		}
	}

	stats.Runs = len(runs)
	if opts.TopN > 0 {
		stats.TopFailures = filterTopN(stats.TopFailures, opts.TopN)
	}
	return stats
}

// filterTopN keeps the n largest counts, breaking ties by key.
func filterTopN(counts map[string]int, n int) map[string]int {
	if len(counts) <= n {
		return counts
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	out := make(map[string]int, n)
	for _, k := range keys[:n] {
		out[k] = counts[k]
	}
	return out
}
