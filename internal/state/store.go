package state

import (
	"fmt"
	"sync"
	"time"
)

// Status is the save status of the open document.
type Status string

const (
	StatusIdle    Status = "idle"    // no changes since last save
	StatusUnsaved Status = "unsaved" // pending changes, save scheduled
	StatusSaving  Status = "saving"  // persist in flight or retry pending
	StatusSaved   Status = "saved"   // last save succeeded, badge still shown
	StatusError   Status = "error"   // retries exhausted or permanent failure
)

func (s Status) String() string {
	if s == "" {
		return string(StatusIdle)
	}
	return string(s)
}

// Snapshot represents the save state visible to the UI and lifecycle hooks.
type Snapshot struct {
	DocumentID        int64
	Status            Status
	ErrorMessage      string
	FailureCount      int    // Consecutive failed persist attempts since the last success
	Episode           uint64 // Changes each time a save episode gets a fresh retry budget
	SerializeFailures int
	LastSavedAt       time.Time
	LastError         error
	LastUpdated       time.Time
}

// ShouldWarnOnLeave reports whether leaving now would lose work that is not
// yet confirmed persisted.
func (s Snapshot) ShouldWarnOnLeave() bool {
	return s.Status == StatusUnsaved || s.Status == StatusSaving
}

// ShouldFlushOnHide reports whether a best-effort save is warranted when the
// editor loses visibility.
func (s Snapshot) ShouldFlushOnHide() bool {
	return s.Status == StatusUnsaved || s.Status == StatusError
}

// HasUnsavedWork returns true while the document differs from the last
// confirmed save or the outcome is not yet known.
func (s Snapshot) HasUnsavedWork() bool {
	switch s.Status {
	case StatusUnsaved, StatusSaving, StatusError:
		return true
	}
	return false
}

// Store coordinates concurrent reads of the published snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Publish replaces the stored snapshot.
func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Status == "" {
		snap.Status = StatusIdle
	}
	snap.LastUpdated = time.Now()
	s.snapshot = snap
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if snap.Status == "" {
		snap.Status = StatusIdle
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
