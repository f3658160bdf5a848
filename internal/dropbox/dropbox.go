// Package dropbox implements a polling drop-box engine.
//
// A drop-box watches a target (inbox) directory and hands each non-empty batch
// of discovered files to a caller-supplied Handler. The lifecycle of a file is
// positional: which of the target, processing, processed or error directories
// currently holds it is its state. The engine never deletes files; handlers
// move them with Claim, Promote and MoveToError.
package dropbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"dropbox/internal/file"
	"dropbox/internal/watcher"
)

// DefaultInterval is the sleep between polls when none is given.
const DefaultInterval = 5000 * time.Millisecond

// DirKind selects one of the four drop-box directories.
type DirKind int

const (
	DirTarget DirKind = iota
	DirError
	DirProcessing
	DirProcessed
)

func (k DirKind) String() string {
	switch k {
	case DirTarget:
		return "target"
	case DirError:
		return "error"
	case DirProcessing:
		return "processing"
	case DirProcessed:
		return "processed"
	default:
		return fmt.Sprintf("DirKind(%d)", int(k))
	}
}

// ParseDirKind maps "target", "error", "processing" or "processed" to a DirKind.
func ParseDirKind(s string) (DirKind, error) {
	for _, k := range []DirKind{DirTarget, DirError, DirProcessing, DirProcessed} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, &Error{Kind: KindInvalid, Err: fmt.Errorf("unknown directory kind %q", s)}
}

// Dirs holds the configured, unvalidated directory paths.
type Dirs struct {
	Target     string
	Error      string
	Processing string
	Processed  string
	Extra      map[string]string // Optional named directories, validated like the rest
}

// DropBoxes is the resolved directory set. It is built once by New and never
// modified afterwards; handlers receive the same pointer on every call and
// must treat it as read-only.
type DropBoxes struct {
	Target     string
	Error      string
	Processing string
	Processed  string
	Extra      map[string]string
}

// Dir returns the resolved directory for kind.
func (d *DropBoxes) Dir(kind DirKind) (string, error) {
	switch kind {
	case DirTarget:
		return d.Target, nil
	case DirError:
		return d.Error, nil
	case DirProcessing:
		return d.Processing, nil
	case DirProcessed:
		return d.Processed, nil
	default:
		return "", &Error{Kind: KindInvalid, Err: fmt.Errorf("unknown directory kind %d", int(kind))}
	}
}

// ExtraDir returns a named extra directory.
func (d *DropBoxes) ExtraDir(name string) (string, bool) {
	dir, ok := d.Extra[name]
	return dir, ok
}

// Handler processes one batch of files discovered in the target directory.
// The engine waits for Handle to return before polling again. A returned
// error is logged and the loop continues; files left in the target
// directory are offered again on the next poll, so Handle must tolerate
// seeing a file more than once.
type Handler[T any] interface {
	Handle(ctx context.Context, dirs *DropBoxes, files []string, data T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, dirs *DropBoxes, files []string, data T) error

func (f HandlerFunc[T]) Handle(ctx context.Context, dirs *DropBoxes, files []string, data T) error {
	return f(ctx, dirs, files, data)
}

// Waker pauses the monitor loop between polls. Wait must return no later
// than d; it may return earlier when new work is likely.
type Waker interface {
	Wait(d time.Duration)
}

// Pauser reports whether polling is currently suspended.
type Pauser interface {
	Paused() bool
}

type sleeper struct{}

func (sleeper) Wait(d time.Duration) { time.Sleep(d) }

// DropBox polls a target directory and dispatches batches to a Handler.
// The payload T is handed to every Handle call as-is; if it is mutable
// shared state the caller synchronizes it.
type DropBox[T any] struct {
	name    string
	dirs    *DropBoxes
	filter  *regexp.Regexp
	ignore  *watcher.FileFilter
	handler Handler[T]
	data    T
	logger  *slog.Logger
	waker   Waker
	pauser  Pauser
}

type options struct {
	name   string
	filter string
	ignore []string
	logger *slog.Logger
	waker  Waker
	pauser Pauser
}

// Option configures a DropBox.
type Option func(*options)

// WithName sets the display name used in log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithFilter restricts listings to file names matching the regular
// expression pattern. An empty pattern disables filtering.
func WithFilter(pattern string) Option {
	return func(o *options) { o.filter = pattern }
}

// WithIgnorePatterns hides file names matching any of the glob patterns,
// e.g. partially downloaded "*.part" files.
func WithIgnorePatterns(patterns ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, patterns...) }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWaker replaces the plain sleep between polls.
func WithWaker(w Waker) Option {
	return func(o *options) { o.waker = w }
}

// WithPauser makes the monitor skip listing while p reports paused.
func WithPauser(p Pauser) Option {
	return func(o *options) { o.pauser = p }
}

// New validates every directory in dirs, compiles the optional filter and
// returns a DropBox ready to Monitor. Nothing is created or moved on disk.
func New[T any](dirs Dirs, handler Handler[T], data T, opts ...Option) (*DropBox[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if handler == nil {
		return nil, &Error{Kind: KindInvalid, Err: fmt.Errorf("handler is required")}
	}

	resolved := &DropBoxes{}
	for _, d := range []struct {
		dst *string
		src string
	}{
		{&resolved.Target, dirs.Target},
		{&resolved.Error, dirs.Error},
		{&resolved.Processing, dirs.Processing},
		{&resolved.Processed, dirs.Processed},
	} {
		dir, err := file.DirectoryExists(d.src)
		if err != nil {
			return nil, &Error{Kind: KindDirectory, Path: d.src, Err: err}
		}
		*d.dst = dir
	}

	if len(dirs.Extra) > 0 {
		resolved.Extra = make(map[string]string, len(dirs.Extra))
		for name, path := range dirs.Extra {
			dir, err := file.DirectoryExists(path)
			if err != nil {
				return nil, &Error{Kind: KindDirectory, Path: path, Err: fmt.Errorf("extra directory %q: %w", name, err)}
			}
			resolved.Extra[name] = dir
		}
	}

	var rx *regexp.Regexp
	if o.filter != "" {
		var err error
		rx, err = regexp.Compile(o.filter)
		if err != nil {
			return nil, &Error{Kind: KindPattern, Path: o.filter, Err: err}
		}
	}

	var ignore *watcher.FileFilter
	if len(o.ignore) > 0 {
		for _, p := range o.ignore {
			if _, err := filepath.Match(p, ""); err != nil {
				return nil, &Error{Kind: KindPattern, Path: p, Err: err}
			}
		}
		ignore = watcher.NewFileFilter(o.ignore)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	if o.name != "" {
		logger = logger.With("dropbox", o.name)
	}

	waker := o.waker
	if waker == nil {
		waker = sleeper{}
	}

	return &DropBox[T]{
		name:    o.name,
		dirs:    resolved,
		filter:  rx,
		ignore:  ignore,
		handler: handler,
		data:    data,
		logger:  logger,
		waker:   waker,
		pauser:  o.pauser,
	}, nil
}

// Name returns the display name, which may be empty.
func (d *DropBox[T]) Name() string {
	return d.name
}

// Dirs returns the resolved directory set.
func (d *DropBox[T]) Dirs() *DropBoxes {
	return d.dirs
}

// List returns the absolute paths of the regular files directly inside the
// selected directory whose names pass the filter. Symlinks and
// subdirectories are skipped. Order follows directory enumeration and
// callers must not rely on it.
func (d *DropBox[T]) List(kind DirKind) ([]string, error) {
	dir, err := d.dirs.Dir(kind)
	if err != nil {
		return nil, err
	}
	return d.listDir(dir)
}

// ListExtra lists a named extra directory with the same rules as List.
func (d *DropBox[T]) ListExtra(name string) ([]string, error) {
	dir, ok := d.dirs.ExtraDir(name)
	if !ok {
		return nil, &Error{Kind: KindInvalid, Err: fmt.Errorf("unknown extra directory %q", name)}
	}
	return d.listDir(dir)
}

func (d *DropBox[T]) listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Kind: KindIO, Path: dir, Err: err}
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if d.filter != nil && !d.filter.MatchString(name) {
			continue
		}
		if d.ignore != nil && d.ignore.ShouldIgnore(name) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

// Monitor runs the poll loop until ctx is cancelled or listing the target
// directory fails. Each iteration checks ctx, lists the target directory,
// calls the handler once if anything was found, then sleeps for interval
// (DefaultInterval if interval <= 0).
//
// Cancellation is observed only at the top of an iteration: an in-flight
// sleep or handler call always runs to completion first. Handler errors are
// logged and never stop the loop. A listing error stops the loop and is
// returned.
func (d *DropBox[T]) Monitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	d.logger.Info("dropbox monitor started",
		"target", d.dirs.Target,
		"interval_ms", interval.Milliseconds())

	for {
		if ctx.Err() != nil {
			d.logger.Info("quitting dropbox monitor")
			return nil
		}

		if d.pauser == nil || !d.pauser.Paused() {
			if err := d.poll(ctx); err != nil {
				d.logger.Error("dropbox monitor stopped", "error", err)
				return err
			}
		} else {
			d.logger.Debug("dropbox monitor paused")
		}

		d.waker.Wait(interval)
	}
}

// poll performs one listing and, for a non-empty result, one dispatch.
// Only listing errors are returned.
func (d *DropBox[T]) poll(ctx context.Context) error {
	files, err := d.List(DirTarget)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	batch := uuid.NewString()
	d.logger.Info("processing files", "batch", batch, "count", len(files))
	if d.logger.Enabled(ctx, slog.LevelDebug) {
		sorted := append([]string(nil), files...)
		sort.Strings(sorted)
		d.logger.Debug("batch files", "batch", batch, "files", sorted)
	}

	start := time.Now()
	if err := d.handler.Handle(ctx, d.dirs, files, d.data); err != nil {
		d.logger.Error("handler failed", "batch", batch, "error", err)
		return nil
	}
	d.logger.Info("batch handled", "batch", batch, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
