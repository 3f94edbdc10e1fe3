// Package cli defines the sheetsync command tree.
//
// Every command shares RootOptions (config and prefs paths, --verbose,
// --format text|json, --local and --user). The root PersistentPreRunE loads
// the configuration and sets up logging once, then commands call into
// package app. Errors carry exit codes through ExitError; see GetExitCode.
package cli
