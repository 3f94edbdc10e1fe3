// Package ui provides the terminal spreadsheet editor for sheetsync.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. A single Model owns the cursor, the cell
// editor and the overlays; the document itself lives in sheet.Document and
// save state lives in the autosave coordinator, which the UI only reads.
//
// # Package Structure
//
//   - app.go: Model, message routing, quit and save flows, Run
//   - editor.go: cell editing and title renaming on a shared textinput
//   - grid.go: viewport, scrolling, mouse hit testing and grid rendering
//   - header.go: title bar with the save badge
//   - status.go: status bar, doubling as the formula bar while editing
//   - help.go, modal.go: help overlay and the leave confirmation
//   - keys.go, theme.go, layout.go: bindings, palettes and geometry
//
// # Save Integration
//
// The UI never decides when to persist. It reaches the autosave machinery
// through three narrow paths:
//
//   - Every message is passed to the configured dirty detectors, and the
//     visible cell text is hashed after each update so changes that bypass
//     the keyboard are still noticed.
//   - ctrl+s calls Saver.SaveNow in a command so the event loop never
//     blocks on the network.
//   - Focus loss fires the host's hidden callbacks, and quitting fires the
//     before-unload callbacks to decide whether to ask for confirmation.
//
// The badge is refreshed by polling state.Store on a tick rather than by
// pushing messages into the program, which keeps the coordinator free of
// any dependency on the event loop.
//
// # Quit Flow
//
//  1. Unsaved or failed changes trigger a save first; success quits.
//  2. If changes are still pending or a save is in flight, a modal offers
//     save and quit, quit anyway, or keep editing.
//  3. Otherwise the program exits and the caller runs the bounded shutdown
//     flush.
package ui
