package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropbox/internal/audit"
	"dropbox/internal/config"
	"dropbox/internal/dropbox"
	"dropbox/internal/filelock"
	"dropbox/internal/mover"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func makeInbox(t *testing.T, root, name string) config.Inbox {
	t.Helper()
	in := config.Inbox{
		Name:       name,
		Target:     filepath.Join(root, name, "in"),
		Error:      filepath.Join(root, name, "error"),
		Processing: filepath.Join(root, name, "processing"),
		Processed:  filepath.Join(root, name, "processed"),
		IntervalMs: 20,
		LockFile:   filepath.Join(root, "locks", name+".lock"),
	}
	for _, d := range []string{in.Target, in.Error, in.Processing, in.Processed} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	return in
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func names(dir string) []string {
	entries, _ := os.ReadDir(dir)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// start runs the orchestrator in the background and returns a function that
// cancels it and waits for the summary.
func start(t *testing.T, cfg *config.Configuration, opts Options) func() (*Summary, error) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discard
	}
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		s   *Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := Run(ctx, cfg, opts)
		done <- result{s, err}
	}()

	return func() (*Summary, error) {
		cancel()
		select {
		case r := <-done:
			return r.s, r.err
		case <-time.After(10 * time.Second):
			return nil, errors.New("orchestrator did not stop")
		}
	}
}

func TestRun_ProcessesEveryInbox(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	b := makeInbox(t, root, "b")
	writeFile(t, filepath.Join(a.Target, "one.csv"), "1")
	writeFile(t, filepath.Join(b.Target, "two.csv"), "22")

	stop := start(t, &config.Configuration{Inboxes: []config.Inbox{a, b}}, Options{})

	require.Eventually(t, func() bool {
		return len(names(a.Processed)) == 1 && len(names(b.Processed)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	summary, err := stop()
	require.NoError(t, err)
	require.Len(t, summary.Inboxes, 2)
	assert.NoError(t, summary.Err())
	assert.NoError(t, summary.FirstErr)
	assert.False(t, summary.HasErrors())
	assert.Equal(t, 2, summary.Totals.Processed)
	assert.Equal(t, uint64(3), summary.Totals.Bytes)
	assert.Empty(t, summary.RunID, "no journal configured")
	assert.Contains(t, summary.PrintSummary(), "Processed 2 files")

	_, err = filelock.Acquire(a.LockPath())
	assert.NoError(t, err, "locks are released when the run ends")
}

func TestRun_LockedInboxFailsStartup(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	b := makeInbox(t, root, "b")
	writeFile(t, filepath.Join(a.Target, "one.csv"), "1")

	held, err := filelock.Acquire(b.LockPath())
	require.NoError(t, err)
	defer held.Unlock()

	_, err = Run(context.Background(), &config.Configuration{Inboxes: []config.Inbox{a, b}}, Options{Logger: discard})
	require.Error(t, err)
	assert.True(t, errors.Is(err, filelock.ErrLocked))
	assert.Equal(t, []string{"one.csv"}, names(a.Target), "nothing is touched when startup fails")

	relock, err := filelock.Acquire(a.LockPath())
	require.NoError(t, err, "earlier inbox locks are released")
	relock.Unlock()
}

func TestRun_InvalidDirectoryFailsStartup(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	a.Processed = filepath.Join(root, "missing")

	_, err := Run(context.Background(), &config.Configuration{Inboxes: []config.Inbox{a}}, Options{Logger: discard})
	require.Error(t, err)
	assert.True(t, dropbox.IsKind(err, dropbox.KindDirectory))
}

func TestRun_FailedInboxDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	b := makeInbox(t, root, "b")

	stop := start(t, &config.Configuration{Inboxes: []config.Inbox{a, b}}, Options{})

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(a.Target))
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(b.Target, "late.csv"), "x")
	require.Eventually(t, func() bool {
		return len(names(b.Processed)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	summary, err := stop()
	require.NoError(t, err)
	assert.True(t, summary.HasErrors())
	assert.True(t, dropbox.IsKind(summary.Inboxes[0].Err, dropbox.KindIO))
	assert.NoError(t, summary.Inboxes[1].Err)
	assert.ErrorContains(t, summary.Err(), `inbox "a"`)
	require.Error(t, summary.FirstErr)
	assert.ErrorContains(t, summary.FirstErr, `inbox "a"`)
	assert.True(t, dropbox.IsKind(summary.FirstErr, dropbox.KindIO))
}

func TestRun_ProcessorFailuresAreCounted(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	writeFile(t, filepath.Join(a.Target, "bad.csv"), "x")

	opts := Options{
		NewProcessor: func(config.Inbox) (mover.Processor, error) {
			return mover.ProcessorFunc(func(context.Context, string, *dropbox.DropBoxes) error {
				return errors.New("rejected")
			}), nil
		},
	}
	stop := start(t, &config.Configuration{Inboxes: []config.Inbox{a}}, opts)

	require.Eventually(t, func() bool {
		return len(names(a.Error)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	summary, err := stop()
	require.NoError(t, err)
	assert.NoError(t, summary.Err())
	assert.True(t, summary.HasErrors())
	assert.Equal(t, 1, summary.Totals.Failed)
}

func TestRun_WritesJournal(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	writeFile(t, filepath.Join(a.Target, "one.csv"), "1")
	journal := filepath.Join(root, "state", "journal.jsonl")

	stop := start(t, &config.Configuration{Journal: journal, Inboxes: []config.Inbox{a}}, Options{Version: "test"})
	require.Eventually(t, func() bool {
		return len(names(a.Processed)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	summary, err := stop()
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)

	events, err := audit.ReadEvents(journal)
	require.NoError(t, err)
	run := audit.FilterByRun(events, summary.RunID)
	var types []audit.EventType
	for _, e := range run {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []audit.EventType{
		audit.EventRunStart, audit.EventClaim, audit.EventProcessed, audit.EventRunEnd,
	}, types)
	assert.Equal(t, "test", run[0].Metadata["appVersion"])
}

type pauser struct{ paused atomic.Bool }

func (p *pauser) Paused() bool { return p.paused.Load() }

func TestRun_PauseSuspendsPolling(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	p := &pauser{}
	p.paused.Store(true)

	stop := start(t, &config.Configuration{Inboxes: []config.Inbox{a}}, Options{Pauser: p})

	writeFile(t, filepath.Join(a.Target, "one.csv"), "1")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"one.csv"}, names(a.Target))

	p.paused.Store(false)
	require.Eventually(t, func() bool {
		return len(names(a.Processed)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, err := stop()
	require.NoError(t, err)
}

func TestRun_WakeOnCreate(t *testing.T) {
	root := t.TempDir()
	a := makeInbox(t, root, "a")
	a.IntervalMs = 60_000
	a.WakeOnCreate = true

	stop := start(t, &config.Configuration{Inboxes: []config.Inbox{a}}, Options{})
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(a.Target, "one.csv"), "1")
	require.Eventually(t, func() bool {
		return len(names(a.Processed)) == 1
	}, 5*time.Second, 10*time.Millisecond, "a new file ends the sleep early")

	// Cancellation alone does not end a sleep; a new file does.
	ctxDone := make(chan struct{})
	var (
		summary *Summary
		stopErr error
	)
	go func() {
		summary, stopErr = stop()
		close(ctxDone)
	}()
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(a.Target, "poke.csv"), "1")

	select {
	case <-ctxDone:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
	require.NoError(t, stopErr)
	require.NotNil(t, summary)
	assert.GreaterOrEqual(t, summary.Inboxes[0].Wakeups, 1)
}
