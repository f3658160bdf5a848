package audit

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the time format used for event timestamps.
const TimestampFormat = time.RFC3339Nano

// eventJSON is the wire form. Optional strings are pointers so that empty
// values are omitted.
type eventJSON struct {
	Timestamp       string            `json:"timestamp"`
	RunID           RunID             `json:"runId"`
	EventType       EventType         `json:"eventType"`
	Status          OperationStatus   `json:"status"`
	Inbox           *string           `json:"inbox,omitempty"`
	SourcePath      *string           `json:"sourcePath,omitempty"`
	DestinationPath *string           `json:"destinationPath,omitempty"`
	ReasonCode      *ReasonCode       `json:"reasonCode,omitempty"`
	FileIdentity    *FileIdentity     `json:"fileIdentity,omitempty"`
	ErrorDetails    *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

func optional[T ~string](v T) *T {
	if v == "" {
		return nil
	}
	return &v
}

func deref[T ~string](v *T) T {
	if v == nil {
		return ""
	}
	return *v
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Timestamp:       e.Timestamp.UTC().Format(TimestampFormat),
		RunID:           e.RunID,
		EventType:       e.EventType,
		Status:          e.Status,
		Inbox:           optional(e.Inbox),
		SourcePath:      optional(e.SourcePath),
		DestinationPath: optional(e.DestinationPath),
		ReasonCode:      optional(e.ReasonCode),
		FileIdentity:    e.FileIdentity,
		ErrorDetails:    e.ErrorDetails,
		Metadata:        e.Metadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	ts, err := time.Parse(TimestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	*e = Event{
		Timestamp:       ts,
		RunID:           ej.RunID,
		EventType:       ej.EventType,
		Status:          ej.Status,
		Inbox:           deref(ej.Inbox),
		SourcePath:      deref(ej.SourcePath),
		DestinationPath: deref(ej.DestinationPath),
		ReasonCode:      deref(ej.ReasonCode),
		FileIdentity:    ej.FileIdentity,
		ErrorDetails:    ej.ErrorDetails,
		Metadata:        ej.Metadata,
	}
	return nil
}
