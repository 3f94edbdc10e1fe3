package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncate shortens a string to the given display width, adding an
// ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	return runewidth.Truncate(value, limit, "…")
}

// fitCell renders a cell value at exactly width columns. Newlines are
// flattened so one cell stays one line.
func fitCell(value string, width int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if runewidth.StringWidth(value) > width {
		value = runewidth.Truncate(value, width, "…")
	}
	return runewidth.FillRight(value, width)
}

// padLeft right-aligns s within width.
func padLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

// center places s in the middle of width columns.
func center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return runewidth.Truncate(s, width, "")
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}
