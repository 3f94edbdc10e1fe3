package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/five82/sheetsync/internal/app"
	"github.com/five82/sheetsync/internal/gridapi"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (API error, save failed)
	ExitCommandError = 2 // Bad arguments or configuration
	ExitNotLoggedIn  = 3 // No valid session for a remote command
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors without one map
// to ExitNotLoggedIn for missing sessions and ExitFailure otherwise.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, app.ErrNotLoggedIn) {
		return ExitNotLoggedIn
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics, so JSON on Writer stays parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command result.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success writes data as JSON, or text as a line in text mode.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Failure reports err in JSON mode and passes it through for the exit
// code. In text mode main prints it.
func (f *OutputFormatter) Failure(err error) error {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: err.Error()})
	}
	return err
}

// VerboseLog writes to ErrWriter only when verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

const titleWidth = 32

// renderList writes the spreadsheet listing as aligned columns. Times are
// shown in loc.
func renderList(w io.Writer, items []gridapi.SpreadsheetListItem, loc *time.Location) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No spreadsheets yet. Create one with: sheetsync new <title>")
		return err
	}
	idWidth := len("ID")
	for _, it := range items {
		idWidth = max(idWidth, len(strconv.FormatInt(it.ID, 10)))
	}

	row := func(id, title, owner, updated string) error {
		title = runewidth.FillRight(runewidth.Truncate(title, titleWidth, "…"), titleWidth)
		_, err := fmt.Fprintf(w, "%*s  %s  %-12s  %s\n", idWidth, id, title, owner, updated)
		return err
	}
	if err := row("ID", "TITLE", "OWNER", "UPDATED"); err != nil {
		return err
	}
	for _, it := range items {
		owner := runewidth.Truncate(it.OwnerName, 12, "…")
		updated := it.UpdatedAt.In(loc).Format("2006-01-02 15:04")
		if err := row(strconv.FormatInt(it.ID, 10), it.Title, owner, updated); err != nil {
			return err
		}
	}
	return nil
}
