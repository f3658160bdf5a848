package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// maxLineSize bounds a single journal line.
const maxLineSize = 1024 * 1024

// EventFilter selects journal events. Zero fields match everything.
type EventFilter struct {
	RunID      RunID
	Inbox      string
	EventTypes []EventType
	Since      time.Time
}

// ReadEvents reads every event in the journal at path. A missing journal
// yields no events. A truncated final line, left by a crash mid-write, is
// ignored; any other malformed line is an error.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var (
		events  []Event
		pending error
		lineNum int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if pending != nil {
			return nil, pending
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			pending = fmt.Errorf("malformed journal line %d: %w", lineNum, err)
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return events, nil
}

// FilterEvents returns the events matching filter, preserving order.
func FilterEvents(events []Event, filter EventFilter) []Event {
	var out []Event
	for _, e := range events {
		if filter.RunID != "" && e.RunID != filter.RunID {
			continue
		}
		if filter.Inbox != "" && e.Inbox != filter.Inbox {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		if len(filter.EventTypes) > 0 && !containsType(filter.EventTypes, e.EventType) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterByRun returns the events belonging to runID.
func FilterByRun(events []Event, runID RunID) []Event {
	return FilterEvents(events, EventFilter{RunID: runID})
}

func containsType(types []EventType, t EventType) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

// ListRuns groups events by run, newest first. Runs without RUN_END are
// still listed; their EndTime is nil.
func ListRuns(events []Event) []RunInfo {
	byID := make(map[RunID]*RunInfo)
	var order []RunID

	for _, e := range events {
		if e.RunID == "" {
			continue
		}
		info, ok := byID[e.RunID]
		if !ok {
			info = &RunInfo{RunID: e.RunID, StartTime: e.Timestamp}
			byID[e.RunID] = info
			order = append(order, e.RunID)
		}
		switch e.EventType {
		case EventRunStart:
			info.StartTime = e.Timestamp
		case EventRunEnd:
			end := e.Timestamp
			info.EndTime = &end
			if s, ok := parseSummary(e.Metadata); ok {
				info.Summary = s
				continue
			}
		}
		countEvent(&info.Summary, e.EventType)
	}

	runs := make([]RunInfo, 0, len(order))
	for _, id := range order {
		runs = append(runs, *byID[id])
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})
	return runs
}

// parseSummary reads the counts written into RUN_END metadata.
func parseSummary(meta map[string]string) (RunSummary, bool) {
	var s RunSummary
	fields := []struct {
		key string
		dst *int
	}{
		{"claimed", &s.Claimed},
		{"processed", &s.Processed},
		{"failed", &s.Failed},
		{"archived", &s.Archived},
		{"skipped", &s.Skipped},
	}
	for _, f := range fields {
		v, ok := meta[f.key]
		if !ok {
			return RunSummary{}, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return RunSummary{}, false
		}
		*f.dst = n
	}
	return s, true
}
