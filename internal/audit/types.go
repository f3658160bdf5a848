// Package audit records drop-box file lifecycle events in an append-only
// JSON Lines journal. The journal is an operator-facing history; the engine
// never reads it back to decide what to do.
package audit

import "time"

// RunID identifies one process run (UUID v4).
type RunID string

// EventType represents the type of journal event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"

	// File lifecycle events
	EventClaim     EventType = "CLAIM"     // target -> processing
	EventProcessed EventType = "PROCESSED" // processing -> processed
	EventFailed    EventType = "FAILED"    // processing -> error, or a failure before claiming
	EventArchived  EventType = "ARCHIVED"  // a colliding file evicted to error
	EventSkip      EventType = "SKIP"

	EventLogInitialized EventType = "LOG_INITIALIZED"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailure OperationStatus = "FAILURE"
	StatusSkipped OperationStatus = "SKIPPED"
)

// ReasonCode explains a skip or failure.
type ReasonCode string

const (
	ReasonUnstable        ReasonCode = "UNSTABLE"         // still being written
	ReasonVanished        ReasonCode = "VANISHED"         // moved away by someone else
	ReasonProcessorFailed ReasonCode = "PROCESSOR_FAILED" // the processor returned an error
	ReasonPlanFailed      ReasonCode = "PLAN_FAILED"      // destination paths could not be prepared
	ReasonMoveFailed      ReasonCode = "MOVE_FAILED"
)

// FileIdentity captures what a file looked like when it was claimed.
type FileIdentity struct {
	ContentHash string    `json:"contentHash,omitempty"` // SHA-256 hex, only when hashing is enabled
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modTime"`
}

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	Operation    string `json:"operation"`
}

// Event is a single journal record.
type Event struct {
	Timestamp       time.Time
	RunID           RunID
	EventType       EventType
	Status          OperationStatus
	Inbox           string
	SourcePath      string
	DestinationPath string
	ReasonCode      ReasonCode
	FileIdentity    *FileIdentity
	ErrorDetails    *ErrorDetails
	Metadata        map[string]string
}

// RunSummary contains per-run counts derived from the journal.
type RunSummary struct {
	Claimed   int `json:"claimed"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Archived  int `json:"archived"`
	Skipped   int `json:"skipped"`
}

// RunInfo describes one run found in the journal.
type RunInfo struct {
	RunID     RunID      `json:"runId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Summary   RunSummary `json:"summary"`
}
