// Package autosave decides when the open spreadsheet is written back to the
// persistence API.
//
// # Overview
//
// A Coordinator owns the save state of exactly one open document. Editing
// surfaces call MarkDirty whenever something may have changed; the user's
// explicit save shortcut calls SaveNow; teardown paths call Flush. Everything
// else is driven by timers the Coordinator schedules on its Clock.
//
// # State Machine
//
//	            MarkDirty (payload differs)
//	  idle ─────────────────────────────────> unsaved
//	   ^                                        │ debounce elapses / SaveNow
//	   │ badge elapses                          v
//	 saved <──────── persist ok ─────────── saving ──┐
//	                                            ^    │ persist fails,
//	                                            └────┘ retries left
//	                                            │
//	                                            │ retries exhausted or
//	                                            v permanent error
//	                                          error ── MarkDirty ──> unsaved
//
// Retries keep the saving status; the observable status never flickers
// through error until the episode is exhausted.
//
// # Guarantees
//
//   - At most one PersistPayload call is in flight. Requests that arrive
//     meanwhile are coalesced into a single debounced follow-up.
//   - A payload byte-identical to the last successfully persisted one is
//     never sent. SetInitialSnapshot seeds that baseline after load so
//     rendering churn does not count as an edit.
//   - The debounce timer and the retry timer share one slot. Scheduling
//     either cancels the other, and a stale callback is a no-op.
//   - The saved badge only reverts to idle if nothing else moved the state
//     machine while it was showing.
//   - MarkDirty is throttled. Calls inside the throttle window collapse into
//     one trailing check when the window closes, so no edit is dropped.
//
// # Errors
//
// Persister errors are classified by an optional Permanent() bool method.
// Permanent errors (a 404 or 401 from the API) skip the retry loop. All
// others back off exponentially: RetryBase, 2*RetryBase, ... capped at
// MaxRetryDelay, for MaxRetries attempts in total. Serializer failures are
// counted, logged and returned wrapped in ErrSerialize; they are not
// retried and do not change the status.
//
// # Timing
//
// Defaults (see DefaultTiming):
//
//   - Debounce: 1.5s
//   - SavedBadge: 2.5s
//   - DirtyCheckThrottle: 300ms
//   - MaxRetries: 3, RetryBase: 1s, MaxRetryDelay: 30s
//   - PersistTimeout: 15s per attempt
//
// SetTiming swaps timings at runtime; the config watcher uses it when the
// config file changes.
//
// # Observability
//
// Transitions are published to a state.Store. Save outcomes, retries and
// dirty checks are counted with Prometheus collectors registered on the
// default registry and served by the sync server's /metrics endpoint.
//
// # Usage Example
//
//	coord, err := autosave.New(autosave.Options{
//		DocumentID: sheet.ID,
//		Serializer: doc,
//		Persister:  client,
//		Timing:     cfg.Autosave.Timing(),
//	})
//	if err != nil {
//		return err
//	}
//	defer coord.Close()
//	coord.SetInitialSnapshot()
package autosave
