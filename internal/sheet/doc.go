// Package sheet is the in-memory workbook edited by the terminal UI.
//
// A Document is a fixed-size grid of raw cell strings. Serialize produces the
// canonical payload the autosave coordinator compares and ships: JSON with
// cells in row-major order, so two documents with the same content always
// serialize to the same bytes. The persistence API carries that payload
// base64-encoded in its data field; LoadOrNew reverses that and falls back to
// an empty workbook when the stored data is missing or unreadable.
//
// Subscribe lets the dirty detectors observe mutations without the document
// knowing about autosave.
package sheet
