// Package app is the composition root of sheetsync.
//
// # Overview
//
// Each CLI command maps to one function here. The package wires
// configuration, logging, a spreadsheet backend, the autosave coordinator,
// lifecycle hooks and the UI together; behavior lives in those packages.
//
// # Backends
//
// Commands talk to a backend through gridapi.SpreadsheetService plus
// autosave.Persister:
//
//   - remote (default): gridapi.Client against the grid API, authenticated
//     with the token from config, SHEETSYNC_TOKEN or `sheetsync login`
//   - local (--local): the server's SQLite database opened directly as a
//     single user, with the store's own persister
//
// # Edit Flow
//
//	┌──────────────┐
//	│   Edit()     │
//	└──────┬───────┘
//	       │
//	       ├─────> FetchSpreadsheet()      Load title and payload
//	       ├─────> sheet.LoadOrNew()       Decode, empty sheet on corrupt data
//	       ├─────> autosave.New()          Coordinator + SetInitialSnapshot
//	       ├─────> dirty.WatchDocument()   Cell edits mark dirty
//	       ├─────> lifecycle.New()         Hooks on UI host and SIGHUP host
//	       ├─────> config.NewWatcher()     Hot reload of timings and logging
//	       ├─────> StartRecovery()         Remote only
//	       ├─────> ui.Run()                Blocks until quit or cancel
//	       └─────> hooks.Shutdown()        Bounded final flush
//
// # Recovery
//
// When the coordinator gives up after its retry budget on a transient
// failure, the recovery loop polls the API health endpoint with exponential
// backoff (2s doubling to 30s) and starts a fresh save once it answers.
// It does this once per failure; if that save fails too, the next attempt
// waits for an edit or ctrl+s. Permanent failures such as 401 or 404 are
// left for the user.
//
// # Shutdown
//
// The final flush runs on a context detached from the command context so a
// SIGTERM still gets its save, bounded by autosave.shutdown_deadline.
package app
