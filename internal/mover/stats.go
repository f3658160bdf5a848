package mover

import "sync"

// Stats accumulates mover results for one inbox. It is the drop-box
// payload shared by every batch, so all access goes through the mutex.
// A nil *Stats counts nothing.
type Stats struct {
	mu sync.Mutex
	s  Snapshot
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Batches   int    `json:"batches"`
	Claimed   int    `json:"claimed"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Archived  int    `json:"archived"`
	Bytes     uint64 `json:"bytes"`
}

// NewStats returns zeroed stats.
func NewStats() *Stats {
	return &Stats{}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func (s *Stats) update(f func(*Snapshot)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	f(&s.s)
	s.mu.Unlock()
}

// Add returns the field-wise sum of a and b.
func (a Snapshot) Add(b Snapshot) Snapshot {
	return Snapshot{
		Batches:   a.Batches + b.Batches,
		Claimed:   a.Claimed + b.Claimed,
		Processed: a.Processed + b.Processed,
		Failed:    a.Failed + b.Failed,
		Skipped:   a.Skipped + b.Skipped,
		Archived:  a.Archived + b.Archived,
		Bytes:     a.Bytes + b.Bytes,
	}
}
