package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/sheetsync/internal/state"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

var (
	quitAnyway = key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "Quit anyway"))
	saveQuit   = key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Save and quit"))
	stay       = key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "Keep editing"))
)

// confirmQuitModal asks before leaving with changes that are not yet saved.
type confirmQuitModal struct {
	snapshot state.Snapshot
}

func newConfirmQuitModal(snap state.Snapshot) Modal {
	return confirmQuitModal{snapshot: snap}
}

func (c confirmQuitModal) Update(msg tea.Msg, _ keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(k, quitAnyway):
		return c, tea.Quit, true
	case key.Matches(k, saveQuit):
		return c, func() tea.Msg { return saveAndQuitMsg{} }, true
	case key.Matches(k, stay):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmQuitModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.WarningText.Bold(true).Render("You have unsaved changes."))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render("Are you sure you want to leave?"))
	if c.snapshot.Status == state.StatusSaving {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("A save is still in progress."))
	}
	if c.snapshot.ErrorMessage != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(truncate(c.snapshot.ErrorMessage, 40)))
	}
	b.WriteString("\n\n")
	for _, binding := range []key.Binding{saveQuit, quitAnyway, stay} {
		h := binding.Help()
		b.WriteString(styles.AccentText.Render(h.Key))
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(h.Desc))
		b.WriteString("   ")
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Warning)).
		Padding(1, 2)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(strings.TrimRight(b.String(), " ")),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
