// Package orchestrator runs the configured drop-boxes together: one monitor
// per inbox, each behind an instance lock, sharing a journal and a logger.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dropbox/internal/audit"
	"dropbox/internal/config"
	"dropbox/internal/dropbox"
	"dropbox/internal/file"
	"dropbox/internal/filelock"
	"dropbox/internal/mover"
	"dropbox/internal/watcher"
)

// Options configures a run.
type Options struct {
	Logger  *slog.Logger
	Version string // recorded in RUN_START

	// Pauser suspends polling on every inbox while it reports paused;
	// *signal.Signal implements it.
	Pauser dropbox.Pauser

	// NewProcessor builds the processor for an inbox. By default an inbox
	// with a command gets a mover.CommandProcessor and one without gets
	// mover.NopProcessor.
	NewProcessor func(in config.Inbox) (mover.Processor, error)
}

// Orchestrator wraps configuration for run and status operations.
type Orchestrator struct {
	config *config.Configuration
	opts   Options
	logger *slog.Logger
}

// NewOrchestrator creates a new Orchestrator with the given configuration.
func NewOrchestrator(cfg *config.Configuration, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{config: cfg, opts: opts, logger: logger}
}

// Run is shorthand for NewOrchestrator(cfg, opts).Run(ctx).
func Run(ctx context.Context, cfg *config.Configuration, opts Options) (*Summary, error) {
	return NewOrchestrator(cfg, opts).Run(ctx)
}

type inboxRunner struct {
	inbox    config.Inbox
	box      *dropbox.DropBox[*mover.Stats]
	stats    *mover.Stats
	lock     *filelock.FileLock
	notifier *watcher.Notifier
	err      error
}

func (r *inboxRunner) release() *watcher.NotifySummary {
	var ns *watcher.NotifySummary
	if r.notifier != nil {
		ns = r.notifier.Close()
	}
	if r.lock != nil {
		r.lock.Unlock()
	}
	return ns
}

// Run starts a monitor for every inbox and blocks until all of them have
// stopped. Monitors stop when ctx is cancelled or when listing their target
// directory fails; one inbox failing does not stop the others.
//
// Any problem while starting (a directory, lock or journal error) stops
// the run before a single file is touched and is returned as the error.
// Failures during the run are reported in the Summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	var journal *audit.Writer
	if o.config.Journal != "" {
		w, err := audit.NewWriter(o.config.Journal, audit.WithContentHash(o.config.JournalHash))
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		defer w.Close()
		if _, err := w.StartRun(o.opts.Version, o.config.InboxNames()); err != nil {
			return nil, err
		}
		journal = w
	}

	runners := make([]*inboxRunner, 0, len(o.config.Inboxes))
	for _, in := range o.config.Inboxes {
		r, err := o.prepare(in, journal)
		if err != nil {
			for _, prev := range runners {
				prev.release()
			}
			if journal != nil {
				journal.EndRun(err)
			}
			return nil, fmt.Errorf("inbox %q: %w", in.Name, err)
		}
		runners = append(runners, r)
	}

	o.logger.Info("dropbox started", "inboxes", len(runners))

	// A plain Group, not WithContext: a failed inbox must not cancel its
	// siblings. Wait reports the first failure; the rest are in the summary.
	var g errgroup.Group
	for _, r := range runners {
		g.Go(func() error {
			r.err = r.box.Monitor(ctx, r.inbox.Interval())
			if r.err != nil {
				o.logger.Error("inbox stopped", "dropbox", r.inbox.Name, "error", r.err)
				return fmt.Errorf("inbox %q: %w", r.inbox.Name, r.err)
			}
			return nil
		})
	}
	first := g.Wait()

	summary := &Summary{Duration: time.Since(start), FirstErr: first}
	if journal != nil {
		if id := journal.CurrentRunID(); id != nil {
			summary.RunID = *id
		}
	}
	for _, r := range runners {
		ns := r.release()
		is := InboxSummary{
			Name:   r.inbox.Name,
			Target: r.box.Dirs().Target,
			Stats:  r.stats.Snapshot(),
			Err:    r.err,
		}
		if ns != nil {
			is.Wakeups = ns.Wakeups
		}
		summary.Inboxes = append(summary.Inboxes, is)
		summary.Totals = summary.Totals.Add(is.Stats)
	}

	if journal != nil {
		if err := journal.EndRun(summary.Err()); err != nil {
			o.logger.Warn("journal write failed", "error", err)
		}
	}
	o.logger.Info("dropbox stopped", "summary", summary.PrintSummary())
	return summary, nil
}

// prepare takes the inbox lock and builds its drop-box. On error nothing is
// left held.
func (o *Orchestrator) prepare(in config.Inbox, journal *audit.Writer) (r *inboxRunner, err error) {
	r = &inboxRunner{inbox: in, stats: mover.NewStats()}
	defer func() {
		if err != nil {
			r.release()
		}
	}()

	r.lock, err = filelock.Acquire(in.LockPath())
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return nil, fmt.Errorf("another dropbox process is monitoring this inbox: %w", err)
		}
		return nil, err
	}

	logger := o.logger.With("dropbox", in.Name)

	processor, err := o.processor(in)
	if err != nil {
		return nil, err
	}

	moverOpts := []mover.Option{mover.WithLogger(logger)}
	if journal != nil {
		moverOpts = append(moverOpts, mover.WithJournal(journal))
	}
	if in.StableThreshold() > 0 {
		moverOpts = append(moverOpts, mover.WithStability(watcher.NewStabilityChecker(in.StableThreshold())))
	}
	handler := mover.New(in.Name, processor, moverOpts...)

	boxOpts := []dropbox.Option{
		dropbox.WithName(in.Name),
		dropbox.WithLogger(o.logger),
		dropbox.WithFilter(in.Filter),
	}
	if len(in.IgnorePatterns) > 0 {
		boxOpts = append(boxOpts, dropbox.WithIgnorePatterns(in.IgnorePatterns...))
	}
	if o.opts.Pauser != nil {
		boxOpts = append(boxOpts, dropbox.WithPauser(o.opts.Pauser))
	}
	if in.WakeOnCreate {
		target, err := file.DirectoryExists(in.Target)
		if err != nil {
			return nil, &dropbox.Error{Kind: dropbox.KindDirectory, Path: in.Target, Err: err}
		}
		cfg := watcher.DefaultNotifyConfig()
		cfg.IgnorePatterns = in.IgnorePatterns
		cfg.Logger = logger
		r.notifier, err = watcher.NewNotifier(target, cfg)
		if err != nil {
			return nil, err
		}
		boxOpts = append(boxOpts, dropbox.WithWaker(r.notifier))
	}

	r.box, err = dropbox.New[*mover.Stats](in.Dirs(), handler, r.stats, boxOpts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (o *Orchestrator) processor(in config.Inbox) (mover.Processor, error) {
	if o.opts.NewProcessor != nil {
		return o.opts.NewProcessor(in)
	}
	if len(in.Command) > 0 {
		return mover.NewCommandProcessor(in.Command, in.CommandTimeout())
	}
	return mover.NopProcessor{}, nil
}
