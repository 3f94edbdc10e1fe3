// Package state holds the observable save state of the open document.
//
// # Overview
//
// The autosave coordinator owns the authoritative SaveState and mutates it
// under its own lock. After every transition it publishes a Snapshot into a
// Store. The UI and the lifecycle hooks only ever read Snapshots:
//
//	Producer (Coordinator):         Consumers:
//	┌──────────────────────┐       ┌─────────────────────────┐
//	│ transition           │       │ ui: status badge (tick) │
//	│      ↓               │       │ lifecycle: hide/unload  │
//	│ store.Publish(snap)  │──────→│ store.Snapshot()        │
//	└──────────────────────┘ mutex └─────────────────────────┘
//
// Publishing never blocks on a consumer. The UI polls on its own tick, which
// keeps the Bubble Tea event loop from ever waiting on the coordinator lock.
//
// # Status helpers
//
//   - ShouldWarnOnLeave: unsaved or saving. Leaving must be confirmed.
//   - ShouldFlushOnHide: unsaved or error. A best-effort save is attempted.
//   - HasUnsavedWork: any of unsaved, saving, error.
//
// The zero Store is ready to use and reports StatusIdle.
package state
