package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrNoActiveRun is returned by the Record methods before StartRun.
var ErrNoActiveRun = errors.New("no active run: call StartRun first")

// Writer appends events to the journal. Writes are serialized within the
// process by a mutex and across processes by an flock on "<journal>.lock",
// so several dropbox processes may share one journal.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	writer     *bufio.Writer
	lock       *flock.Flock
	path       string
	withHash   bool
	currentRun *RunID
	counts     RunSummary
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithContentHash records a SHA-256 of each claimed file.
func WithContentHash(enabled bool) WriterOption {
	return func(w *Writer) { w.withHash = enabled }
}

// NewWriter opens path for appending, creating the parent directory and the
// file if needed. A new journal starts with a LOG_INITIALIZED event.
func NewWriter(path string, opts ...WriterOption) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	w := &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		lock:   flock.New(path + ".lock"),
		path:   path,
	}
	for _, opt := range opts {
		opt(w)
	}

	if isNew {
		err := w.WriteEvent(Event{
			Timestamp: time.Now().UTC(),
			EventType: EventLogInitialized,
			Status:    StatusSuccess,
			Metadata:  map[string]string{"schemaVersion": "1"},
		})
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
		}
	}

	return w, nil
}

// GenerateRunID returns a new UUID v4 run identifier.
func GenerateRunID() RunID {
	return RunID(uuid.NewString())
}

// StartRun begins a run and writes RUN_START.
func (w *Writer) StartRun(appVersion string, inboxes []string) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := GenerateRunID()
	host, _ := os.Hostname()
	meta := map[string]string{
		"appVersion": appVersion,
		"hostname":   host,
		"pid":        strconv.Itoa(os.Getpid()),
	}
	for i, name := range inboxes {
		meta["inbox."+strconv.Itoa(i)] = name
	}

	err := w.writeEventLocked(Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata:  meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	w.counts = RunSummary{}
	return runID, nil
}

// EndRun writes RUN_END with the counts accumulated since StartRun.
// A non-nil runErr marks the run as failed.
func (w *Writer) EndRun(runErr error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		RunID:     *w.currentRun,
		EventType: EventRunEnd,
		Status:    StatusSuccess,
		Metadata:  summaryMetadata(w.counts),
	}
	if runErr != nil {
		event.Status = StatusFailure
		event.ErrorDetails = &ErrorDetails{
			ErrorType:    "RUN_FAILED",
			ErrorMessage: runErr.Error(),
			Operation:    "run",
		}
	}

	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}
	w.currentRun = nil
	return nil
}

// WriteEvent appends a single event.
func (w *Writer) WriteEvent(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeEventLocked(event)
}

func (w *Writer) writeEventLocked(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := w.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock journal: %w", err)
	}
	defer w.lock.Unlock()

	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}

	countEvent(&w.counts, event.EventType)
	return nil
}

// record fills in the run and timestamp and writes the event.
func (w *Writer) record(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}
	event.RunID = *w.currentRun
	event.Timestamp = time.Now().UTC()
	return w.writeEventLocked(event)
}

// RecordClaim records a target -> processing move. The identity of the
// claimed file is captured at dest; a capture failure is not fatal.
func (w *Writer) RecordClaim(inbox, source, dest string) error {
	identity, _ := CaptureIdentity(dest, w.withHash)
	return w.record(Event{
		EventType:       EventClaim,
		Status:          StatusSuccess,
		Inbox:           inbox,
		SourcePath:      source,
		DestinationPath: dest,
		FileIdentity:    identity,
	})
}

// RecordProcessed records a processing -> processed move.
func (w *Writer) RecordProcessed(inbox, source, dest string, elapsed time.Duration) error {
	return w.record(Event{
		EventType:       EventProcessed,
		Status:          StatusSuccess,
		Inbox:           inbox,
		SourcePath:      source,
		DestinationPath: dest,
		Metadata:        map[string]string{"durationMs": strconv.FormatInt(elapsed.Milliseconds(), 10)},
	})
}

// RecordFailed records a file that ended up in the error directory, or
// could not be moved at all when dest is empty.
func (w *Writer) RecordFailed(inbox, source, dest string, reason ReasonCode, cause error) error {
	event := Event{
		EventType:       EventFailed,
		Status:          StatusFailure,
		Inbox:           inbox,
		SourcePath:      source,
		DestinationPath: dest,
		ReasonCode:      reason,
	}
	if cause != nil {
		event.ErrorDetails = &ErrorDetails{
			ErrorType:    string(reason),
			ErrorMessage: cause.Error(),
			Operation:    "process",
		}
	}
	return w.record(event)
}

// RecordArchived records a colliding file evicted to the error directory.
func (w *Writer) RecordArchived(inbox, source, dest string) error {
	return w.record(Event{
		EventType:       EventArchived,
		Status:          StatusSuccess,
		Inbox:           inbox,
		SourcePath:      source,
		DestinationPath: dest,
	})
}

// RecordSkip records a file left in the inbox for a later poll.
func (w *Writer) RecordSkip(inbox, source string, reason ReasonCode) error {
	return w.record(Event{
		EventType:  EventSkip,
		Status:     StatusSkipped,
		Inbox:      inbox,
		SourcePath: source,
		ReasonCode: reason,
	})
}

// CurrentRunID returns the active run, or nil.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// Path returns the journal path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the journal.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

func countEvent(s *RunSummary, t EventType) {
	switch t {
	case EventClaim:
		s.Claimed++
	case EventProcessed:
		s.Processed++
	case EventFailed:
		s.Failed++
	case EventArchived:
		s.Archived++
	case EventSkip:
		s.Skipped++
	}
}

func summaryMetadata(s RunSummary) map[string]string {
	return map[string]string{
		"claimed":   strconv.Itoa(s.Claimed),
		"processed": strconv.Itoa(s.Processed),
		"failed":    strconv.Itoa(s.Failed),
		"archived":  strconv.Itoa(s.Archived),
		"skipped":   strconv.Itoa(s.Skipped),
	}
}
