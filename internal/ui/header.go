package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/sheetsync/internal/state"
)

// renderHeader renders the title bar: logo, document title and save badge.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := lipgloss.Color(m.theme.Surface)

	left := styles.Logo.Background(bg).Render("sheetsync") +
		lipgloss.NewStyle().Background(bg).Render("  ")
	if m.mode == modeRename {
		left += styles.AccentText.Background(bg).Render("Rename: ") + m.input.View()
	} else {
		left += styles.Text.Background(bg).Bold(true).Render(truncate(m.title, 48))
	}

	right := ""
	if label := badgeLabel(m.snapshot); label != "" {
		right = styles.StatusStyle(m.snapshot.Status).Render(label)
	}

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	filler := lipgloss.NewStyle().Background(bg).Width(gap).Render("")
	return styles.Header.Width(m.width).Render(left + filler + right)
}

// badgeLabel is the save indicator text. Idle shows nothing.
func badgeLabel(snap state.Snapshot) string {
	switch snap.Status {
	case state.StatusUnsaved:
		return "● Unsaved changes"
	case state.StatusSaving:
		if snap.FailureCount > 0 {
			return fmt.Sprintf("Saving (retry %d)...", snap.FailureCount)
		}
		return "Saving..."
	case state.StatusSaved:
		return "✓ Saved"
	case state.StatusError:
		return "✗ Save failed"
	default:
		return ""
	}
}
