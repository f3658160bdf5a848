package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"dropbox/internal/audit"
	"dropbox/internal/bytefmt"
	"dropbox/internal/mover"
)

// InboxSummary is the outcome of one inbox's monitor.
type InboxSummary struct {
	Name    string
	Target  string
	Stats   mover.Snapshot
	Wakeups int   // early wake-ups from file creation events
	Err     error // why the monitor stopped, nil on cancellation
}

// Summary contains statistics from a run.
type Summary struct {
	RunID    audit.RunID // empty without a journal
	Inboxes  []InboxSummary
	Totals   mover.Snapshot
	Duration time.Duration
	FirstErr error // the first monitor to stop on an error, nil if none did
}

// Err joins the errors that stopped monitors.
func (s *Summary) Err() error {
	var errs []error
	for _, in := range s.Inboxes {
		if in.Err != nil {
			errs = append(errs, fmt.Errorf("inbox %q: %w", in.Name, in.Err))
		}
	}
	return errors.Join(errs...)
}

// HasErrors returns true if a monitor stopped on an error or any file
// ended up in an error directory.
func (s *Summary) HasErrors() bool {
	return s.Err() != nil || s.Totals.Failed > 0
}

// PrintSummary returns a formatted summary string.
func (s *Summary) PrintSummary() string {
	return fmt.Sprintf("Processed %d files (%s) in %d inboxes: %d failed, %d skipped, %d archived",
		s.Totals.Processed,
		bytefmt.FormatBytes(s.Totals.Bytes, 1, 2),
		len(s.Inboxes),
		s.Totals.Failed,
		s.Totals.Skipped,
		s.Totals.Archived)
}
