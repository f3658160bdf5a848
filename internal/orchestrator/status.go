package orchestrator

import (
	"context"
	"fmt"
	"os"

	"dropbox/internal/config"
	"dropbox/internal/dropbox"
	"dropbox/internal/filelock"
)

// DirKinds lists the drop-box directories in lifecycle order.
var DirKinds = []dropbox.DirKind{
	dropbox.DirTarget,
	dropbox.DirProcessing,
	dropbox.DirProcessed,
	dropbox.DirError,
}

// DirStatus describes one directory of an inbox.
type DirStatus struct {
	Kind  dropbox.DirKind
	Path  string
	Count int
	Bytes uint64
}

// InboxStatus describes one inbox.
type InboxStatus struct {
	Name    string
	Dirs    []DirStatus
	Running bool  // another process holds the instance lock
	Err     error // set when the inbox could not be inspected
}

// StatusResult contains the status of every configured inbox.
type StatusResult struct {
	Inboxes []InboxStatus
	Pending int // files waiting in target directories
	Failed  int // files in error directories
}

var nopHandler = dropbox.HandlerFunc[struct{}](func(context.Context, *dropbox.DropBoxes, []string, struct{}) error {
	return nil
})

// open builds a drop-box for inspection only; it is never monitored.
func open(in config.Inbox) (*dropbox.DropBox[struct{}], error) {
	opts := []dropbox.Option{dropbox.WithName(in.Name), dropbox.WithFilter(in.Filter)}
	if len(in.IgnorePatterns) > 0 {
		opts = append(opts, dropbox.WithIgnorePatterns(in.IgnorePatterns...))
	}
	return dropbox.New(in.Dirs(), nopHandler, struct{}{}, opts...)
}

// Status counts the files in every directory of every inbox without
// modifying anything. Counts apply the inbox filter and ignore patterns,
// so the target count is what the next poll would see.
func (o *Orchestrator) Status() (*StatusResult, error) {
	result := &StatusResult{}

	for _, in := range o.config.Inboxes {
		st := InboxStatus{Name: in.Name, Running: isLocked(in.LockPath())}

		box, err := open(in)
		if err != nil {
			st.Err = err
			result.Inboxes = append(result.Inboxes, st)
			continue
		}

		for _, kind := range DirKinds {
			files, err := box.List(kind)
			if err != nil {
				st.Err = err
				break
			}
			path, _ := box.Dirs().Dir(kind)
			ds := DirStatus{Kind: kind, Path: path, Count: len(files)}
			for _, f := range files {
				if info, err := os.Stat(f); err == nil {
					ds.Bytes += uint64(info.Size())
				}
			}
			st.Dirs = append(st.Dirs, ds)

			switch kind {
			case dropbox.DirTarget:
				result.Pending += ds.Count
			case dropbox.DirError:
				result.Failed += ds.Count
			}
		}
		result.Inboxes = append(result.Inboxes, st)
	}

	return result, nil
}

// Status is shorthand for NewOrchestrator(cfg, Options{}).Status().
func Status(cfg *config.Configuration) (*StatusResult, error) {
	return NewOrchestrator(cfg, Options{}).Status()
}

// List returns the files in one directory of the named inbox, filtered
// the same way the monitor filters its target.
func List(cfg *config.Configuration, inbox string, kind dropbox.DirKind) ([]string, error) {
	in, ok := cfg.Inbox(inbox)
	if !ok {
		return nil, fmt.Errorf("unknown inbox %q", inbox)
	}
	box, err := open(*in)
	if err != nil {
		return nil, err
	}
	return box.List(kind)
}

// isLocked reports whether another process holds the lock at path. A
// missing lock file means nobody does; it is not created.
func isLocked(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	lock := filelock.NewFileLock(path)
	acquired, err := lock.TryLock()
	if err != nil {
		return false
	}
	if acquired {
		lock.Unlock()
		return false
	}
	return true
}
