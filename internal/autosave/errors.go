package autosave

import (
	"errors"
	"strings"
)

var (
	// ErrNoDocument is returned when no document identifier is bound.
	ErrNoDocument = errors.New("no document bound")

	// ErrSaveInProgress is returned when a save request was coalesced behind
	// a persist that is already in flight.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrSerialize wraps serializer failures. These are never retried.
	ErrSerialize = errors.New("serialize document")

	// ErrRetriesExhausted wraps the last persist error once the retry
	// budget is spent and the coordinator has moved to the error state.
	ErrRetriesExhausted = errors.New("save retries exhausted")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("coordinator closed")
)

const fallbackErrorMessage = "Failed to save. Your changes are preserved locally."

// isPermanent reports whether err declares itself not worth retrying, e.g.
// an HTTP 404 or 401 from the persistence API.
func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return p.Permanent()
	}
	return false
}

func humanMessage(err error) string {
	if err == nil {
		return fallbackErrorMessage
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fallbackErrorMessage
	}
	return msg
}
