// Package store persists users, sessions and spreadsheets in SQLite.
//
// It backs both the bundled API server (sheetsync serve) and the editor's
// local mode, where autosave writes straight into the database instead of
// going over HTTP.
//
// # Layout
//
// The schema lives in schema.sql and is embedded at build time. Open applies
// it idempotently and records the version in PRAGMA user_version.
//
// Timestamps are stored as fixed-width UTC text so ORDER BY on updated_at
// sorts chronologically.
//
// # Ownership
//
// Every spreadsheet query is scoped by owner. A row owned by somebody else is
// reported as ErrNotFound, never as a permission error, so callers cannot
// probe for ids they do not own.
//
// # Concurrency
//
// The pool is capped at one connection. SQLite serialises writers anyway and
// a single connection keeps busy errors out of the picture.
package store
