// Package lifecycle connects the autosave coordinator to the events of the
// environment hosting the editor.
//
// # Events
//
//   - Hidden: the terminal lost focus or hung up. With unsaved work or a
//     failed save, a flush starts in the background; the event handler never
//     waits on it.
//   - Before unload: the user asked to leave. While a change waits for its
//     debounce or a save is in flight, the host must confirm first. A clean
//     state or an error state leaves immediately.
//   - Shutdown: the process is exiting. Outstanding work is flushed,
//     bounded by a hard deadline (3s by default), and the coordinator is
//     closed. A terminal process has no browser-style unload handshake, so
//     this is the last chance to persist.
//
// # Hosts
//
// Callbacks is the shared registry. The Bubble Tea model embeds one and
// fires it from tea.BlurMsg and the quit key; SignalHost fires it on SIGHUP.
package lifecycle
