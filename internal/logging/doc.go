// Package logging hands out per-component logrus loggers.
//
// Every package asks for its logger with NewLogger("autosave"),
// NewLogger("gridapi") and so on; the entry carries a component field. The
// command layer calls Setup once with the [log] section of the config file,
// and again when that file changes.
//
// The editor draws on the terminal, so structured logs go to the file sink
// by default. In auto mode stderr is used only when it is not a terminal
// (piped output, CI, the headless serve command). SHEETSYNC_LOG_LEVEL
// overrides the configured level.
package logging
