// Package watcher provides filesystem hints for drop-box polling: an
// fsnotify-backed wake-up source, ignore patterns for temporary files and a
// file-size stability check.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// NotifyConfig contains notifier settings.
type NotifyConfig struct {
	Debounce       time.Duration // Quiet period after the last event before waking (default: 250ms)
	IgnorePatterns []string      // Glob patterns that never wake the loop
	Logger         *slog.Logger
}

// DefaultNotifyConfig returns a NotifyConfig with sensible defaults.
func DefaultNotifyConfig() *NotifyConfig {
	return &NotifyConfig{
		Debounce:       250 * time.Millisecond,
		IgnorePatterns: DefaultIgnorePatterns(),
	}
}

// NotifySummary contains stats from a notifier session.
type NotifySummary struct {
	Events   int // Create events seen in the directory
	Ignored  int // Events dropped by the ignore patterns
	Wakeups  int // Waits that ended early
	Duration time.Duration
}

// Notifier ends a poll loop's sleep early when a new entry appears in the
// watched directory. It only shortens waits; it never extends them, and it
// carries no file names, so the poller's listing stays authoritative.
type Notifier struct {
	config    *NotifyConfig
	fsWatcher *fsnotify.Watcher
	filter    *FileFilter
	debouncer *Debouncer
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	startTime time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	events  int
	ignored int
	wakeups int
}

// NewNotifier starts watching dir. If config is nil, defaults are used.
func NewNotifier(dir string, config *NotifyConfig) (*Notifier, error) {
	if config == nil {
		config = DefaultNotifyConfig()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(absDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	n := &Notifier{
		config:    config,
		fsWatcher: fsWatcher,
		filter:    NewFileFilter(config.IgnorePatterns),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger.With("watch", absDir),
	}
	n.debouncer = NewDebouncer(config.Debounce, func(string) { n.signal() })

	n.wg.Add(1)
	go n.processEvents()

	return n, nil
}

// Wait blocks for d, or less if a new file shows up in the meantime.
// An event that arrived while nobody was waiting ends the next Wait
// immediately.
func (n *Notifier) Wait(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-n.wake:
		n.mu.Lock()
		n.wakeups++
		n.mu.Unlock()
	case <-n.done:
		// Closed notifiers fall back to a plain sleep.
		<-timer.C
	}
}

// Close stops watching and returns a summary of the session.
func (n *Notifier) Close() *NotifySummary {
	n.closeOnce.Do(func() {
		close(n.done)
		n.wg.Wait()
		n.debouncer.CancelAll()
		n.fsWatcher.Close()
	})

	n.mu.Lock()
	defer n.mu.Unlock()
	return &NotifySummary{
		Events:   n.events,
		Ignored:  n.ignored,
		Wakeups:  n.wakeups,
		Duration: time.Since(n.startTime),
	}
}

func (n *Notifier) processEvents() {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return
		case event, ok := <-n.fsWatcher.Events:
			if !ok {
				return
			}
			// Files renamed into the directory also arrive as Create.
			if event.Op&fsnotify.Create == fsnotify.Create {
				n.handleCreate(event.Name)
			}
		case err, ok := <-n.fsWatcher.Errors:
			if !ok {
				return
			}
			n.logger.Warn("watch error", "error", err)
		}
	}
}

func (n *Notifier) handleCreate(path string) {
	n.mu.Lock()
	n.events++
	ignore := n.filter.ShouldIgnore(path)
	if ignore {
		n.ignored++
	}
	n.mu.Unlock()

	if ignore {
		return
	}
	n.debouncer.Add(path)
}

func (n *Notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}
