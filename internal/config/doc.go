// Package config handles loading and parsing the sheetsync configuration file.
//
// # Overview
//
// The config file tells the editor where the grid API lives, which token to
// authenticate with, how the autosave coordinator is tuned, where logs go and
// how the bundled API server runs.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/sheetsync/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//  5. SHEETSYNC_API_URL and SHEETSYNC_TOKEN override the file
//
// Paths ending in .yml or .yaml are parsed as YAML; everything else as TOML.
//
// # Default Values
//
//   - API endpoint: 127.0.0.1:8080
//   - Autosave: debounce 1.5s, saved badge 2.5s, dirty-check throttle 300ms,
//     3 attempts, retry base 1s capped at 30s, 15s per attempt, 3s shutdown
//     flush deadline
//   - Log file: ~/.local/state/sheetsync/sheetsync.log, level info, text
//   - Server: listen 127.0.0.1:8080, database ~/.local/share/sheetsync/sheetsync.db
//
// # TOML Format
//
//	api_url = "127.0.0.1:8080"
//	token = "..."
//
//	[autosave]
//	debounce = "1.5s"
//	saved_badge = "2.5s"
//	dirty_check_throttle = "300ms"
//	max_retries = 3
//	retry_base = "1s"
//	max_retry_delay = "30s"
//	persist_timeout = "15s"
//	shutdown_deadline = "3s"
//
//	[log]
//	level = "info"      # debug, info, warn, error
//	format = "text"     # text or json
//	file = "~/.local/state/sheetsync/sheetsync.log"
//	stderr = "auto"     # auto, always, never
//
//	[server]
//	listen = "127.0.0.1:8080"
//	db_path = "~/.local/share/sheetsync/sheetsync.db"
//
// Durations use Go syntax. Every field is optional.
//
// # Validation
//
// Load rejects non-positive durations, max_retries below 1, a retry cap below
// the retry base, unknown log levels and formats, and an unparseable api_url.
// A missing file is NOT an error.
//
// # Live Reload
//
// Watcher observes the config file's directory with fsnotify, debounces
// bursts of writes and reloads. The editor applies new [autosave] timings to
// the running coordinator and new [log] settings to the loggers. An invalid
// edit is logged and the previous settings stay in effect.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//		return err
//	}
//	coord, err := autosave.New(autosave.Options{Timing: cfg.Autosave.Timing(), ...})
package config
