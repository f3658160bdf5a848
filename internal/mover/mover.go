// Package mover provides the standard drop-box handler: it claims each file
// into processing, runs a Processor on it and files the result under
// processed or error.
package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"dropbox/internal/audit"
	"dropbox/internal/bytefmt"
	"dropbox/internal/dropbox"
	"dropbox/internal/watcher"
)

// Op names the step of the file lifecycle that failed.
type Op string

const (
	OpPlan    Op = "PLAN"
	OpClaim   Op = "CLAIM"
	OpProcess Op = "PROCESS"
	OpPromote Op = "PROMOTE"
	OpArchive Op = "ARCHIVE"
)

// FileError represents a failure while handling one file.
type FileError struct {
	Op   Op
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Journal receives lifecycle events. *audit.Writer implements it.
type Journal interface {
	RecordClaim(inbox, source, dest string) error
	RecordProcessed(inbox, source, dest string, elapsed time.Duration) error
	RecordFailed(inbox, source, dest string, reason audit.ReasonCode, cause error) error
	RecordArchived(inbox, source, dest string) error
	RecordSkip(inbox, source string, reason audit.ReasonCode) error
}

// Mover implements dropbox.Handler[*Stats].
type Mover struct {
	inbox     string
	processor Processor
	stability *watcher.StabilityChecker
	journal   Journal
	logger    *slog.Logger
}

// Option configures a Mover.
type Option func(*Mover)

// WithStability waits for each file's size to settle before claiming it.
// Files still changing are left in the inbox for a later poll.
func WithStability(checker *watcher.StabilityChecker) Option {
	return func(m *Mover) { m.stability = checker }
}

// WithJournal records lifecycle events.
func WithJournal(j Journal) Option {
	return func(m *Mover) { m.journal = j }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mover) { m.logger = logger }
}

// New returns a Mover for the named inbox. A nil processor is NopProcessor.
func New(inbox string, processor Processor, opts ...Option) *Mover {
	if processor == nil {
		processor = NopProcessor{}
	}
	m := &Mover{inbox: inbox, processor: processor}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Handle processes files one at a time. A failure on one file does not stop
// the batch; all failures are joined into the returned error. Once ctx is
// done the remaining files are left in the inbox.
func (m *Mover) Handle(ctx context.Context, dirs *dropbox.DropBoxes, files []string, stats *Stats) error {
	stats.update(func(s *Snapshot) { s.Batches++ })

	var errs []error
	for i, src := range files {
		if ctx.Err() != nil {
			m.logger.Info("shutdown requested, leaving files in inbox", "remaining", len(files)-i)
			break
		}
		if err := m.handleFile(ctx, dirs, src, stats); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Mover) handleFile(ctx context.Context, dirs *dropbox.DropBoxes, src string, stats *Stats) error {
	if m.stability != nil {
		if err := m.stability.WaitForStable(ctx, src); err != nil {
			switch {
			case errors.Is(err, watcher.ErrFileNotFound):
				m.skip(src, audit.ReasonVanished, stats)
				return nil
			case errors.Is(err, watcher.ErrFileUnstable), ctx.Err() != nil:
				m.skip(src, audit.ReasonUnstable, stats)
				return nil
			default:
				return &FileError{Op: OpPlan, Path: src, Err: err}
			}
		}
	}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.skip(src, audit.ReasonVanished, stats)
			return nil
		}
		return &FileError{Op: OpPlan, Path: src, Err: err}
	}
	size := uint64(info.Size())

	plan, err := dropbox.GenerateFilePaths(dirs, src)
	if err != nil {
		m.fail(src, "", audit.ReasonPlanFailed, err, stats)
		return &FileError{Op: OpPlan, Path: src, Err: err}
	}
	if plan.Evicted != "" {
		m.archived(plan.Processed, plan.Evicted, stats)
	}

	if err := m.claim(plan, src, stats); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.skip(src, audit.ReasonVanished, stats)
			return nil
		}
		m.fail(src, "", audit.ReasonMoveFailed, err, stats)
		return &FileError{Op: OpClaim, Path: src, Err: err}
	}

	start := time.Now()
	procErr := m.processor.Process(ctx, plan.Processing, dirs)
	elapsed := time.Since(start)

	if procErr != nil {
		dest, err := dropbox.MoveToError(plan.Processing, plan.Error)
		if err != nil {
			m.fail(plan.Processing, "", audit.ReasonMoveFailed, errors.Join(procErr, err), stats)
			return &FileError{Op: OpArchive, Path: plan.Processing, Err: errors.Join(procErr, err)}
		}
		m.fail(plan.Processing, dest, audit.ReasonProcessorFailed, procErr, stats)
		return &FileError{Op: OpProcess, Path: src, Err: procErr}
	}

	dest, err := m.promote(dirs, plan, stats)
	if err != nil {
		m.fail(plan.Processing, "", audit.ReasonMoveFailed, err, stats)
		return &FileError{Op: OpPromote, Path: plan.Processing, Err: err}
	}

	stats.update(func(s *Snapshot) {
		s.Processed++
		s.Bytes += size
	})
	m.logger.Info("file processed",
		"file", info.Name(),
		"size", bytefmt.Format(size),
		"rate", bytefmt.Rate(size, elapsed),
		"duration", elapsed.Round(time.Millisecond))
	m.record(func(j Journal) error { return j.RecordProcessed(m.inbox, plan.Processing, dest, elapsed) })
	return nil
}

// claim moves src into processing, recording any leftover it evicts.
func (m *Mover) claim(plan *dropbox.FilePaths, src string, stats *Stats) error {
	evicted, err := dropbox.Archive(plan.Processing, plan.Error)
	if err != nil {
		return err
	}
	if evicted != "" {
		m.archived(plan.Processing, evicted, stats)
	}
	if err := dropbox.Claim(plan, src); err != nil {
		return err
	}

	stats.update(func(s *Snapshot) { s.Claimed++ })
	m.logger.Debug("file claimed", "file", src, "processing", plan.Processing)
	m.record(func(j Journal) error { return j.RecordClaim(m.inbox, src, plan.Processing) })
	return nil
}

// promote moves the processed file out of processing. A processor that
// already moved the file elsewhere leaves nothing to promote; dest is then
// empty.
func (m *Mover) promote(dirs *dropbox.DropBoxes, plan *dropbox.FilePaths, stats *Stats) (string, error) {
	if _, err := os.Lstat(plan.Processing); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	evicted, err := dropbox.Archive(plan.Processed, plan.Error)
	if err != nil {
		return "", err
	}
	if evicted != "" {
		m.archived(plan.Processed, evicted, stats)
	}
	return dropbox.Promote(dirs, plan.Processing)
}

func (m *Mover) skip(src string, reason audit.ReasonCode, stats *Stats) {
	stats.update(func(s *Snapshot) { s.Skipped++ })
	m.logger.Debug("file skipped", "file", src, "reason", reason)
	m.record(func(j Journal) error { return j.RecordSkip(m.inbox, src, reason) })
}

func (m *Mover) fail(src, dest string, reason audit.ReasonCode, cause error, stats *Stats) {
	stats.update(func(s *Snapshot) { s.Failed++ })
	m.logger.Warn("file failed", "file", src, "error_path", dest, "reason", reason, "error", cause)
	m.record(func(j Journal) error { return j.RecordFailed(m.inbox, src, dest, reason, cause) })
}

func (m *Mover) archived(src, dest string, stats *Stats) {
	stats.update(func(s *Snapshot) { s.Archived++ })
	m.logger.Warn("destination occupied, archived existing file", "file", src, "archive", dest)
	m.record(func(j Journal) error { return j.RecordArchived(m.inbox, src, dest) })
}

// record writes to the journal if there is one. Journal failures are
// logged; they never change what happens to the file.
func (m *Mover) record(write func(Journal) error) {
	if m.journal == nil {
		return
	}
	if err := write(m.journal); err != nil {
		m.logger.Warn("journal write failed", "error", err)
	}
}
