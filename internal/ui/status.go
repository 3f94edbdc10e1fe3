package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/sheetsync/internal/state"
)

// renderStatusBar renders the bottom line. While editing it doubles as the
// formula bar; otherwise it shows the cell reference, save details and the
// short key help.
func (m Model) renderStatusBar() string {
	styles := m.theme.Styles()
	ref := styles.AccentText.Bold(true).Render(m.cursor.String())

	if m.mode == modeEdit {
		return styles.Footer.Width(m.width).Render(ref + "  " + m.input.View())
	}

	detail := m.statusDetail(styles)
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())

	gap := m.width - 2 - lipgloss.Width(ref) - lipgloss.Width(detail) - lipgloss.Width(helpView) - 2
	line := ref + "  " + detail
	if gap >= 1 {
		line += lipgloss.NewStyle().Width(gap).Render("") + helpView
	}
	return styles.Footer.Width(m.width).Render(line)
}

// statusDetail prefers a transient flash, then the last save error, then
// the time of the last successful save.
func (m Model) statusDetail(styles Styles) string {
	if m.flash != "" {
		if m.flashError {
			return styles.DangerText.Render(m.flash)
		}
		return styles.WarningText.Render(m.flash)
	}

	snap := m.snapshot
	switch {
	case snap.Status == state.StatusError && snap.ErrorMessage != "":
		return styles.DangerText.Render(truncate(snap.ErrorMessage, 60)) +
			styles.MutedText.Render("  ctrl+s to retry")
	case snap.Status == state.StatusSaving && snap.FailureCount > 0:
		return styles.WarningText.Render(fmt.Sprintf("retry %d", snap.FailureCount))
	case !snap.LastSavedAt.IsZero():
		return styles.MutedText.Render("Last saved " + snap.LastSavedAt.Local().Format(time.Kitchen))
	}
	return ""
}
