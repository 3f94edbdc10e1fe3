package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// startEdit opens the cell editor on the cursor with initial as its content.
func (m *Model) startEdit(initial string) {
	m.mode = modeEdit
	m.input.SetValue(initial)
	m.input.CursorEnd()
	m.input.Focus()
}

// commitEdit writes the editor content into the cursor cell.
func (m *Model) commitEdit() {
	value := m.input.Value()
	m.closeInput()
	if _, err := m.doc.Set(m.cursor, value); err != nil {
		m.setFlash(err.Error(), true)
	}
}

func (m *Model) closeInput() {
	m.mode = modeNavigate
	m.input.Blur()
	m.input.SetValue("")
}

func (m Model) handleEditKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
		return m, nil
	case key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.Down):
		m.commitEdit()
		m.moveCursor(1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.commitEdit()
		m.moveCursor(-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.commitEdit()
		m.moveCursor(0, 1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.commitEdit()
		m.moveCursor(0, -1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startRename() (Model, tea.Cmd) {
	if m.rename == nil {
		m.setFlash("Renaming is not available", true)
		return m, nil
	}
	m.mode = modeRename
	m.input.SetValue(m.title)
	m.input.CursorEnd()
	m.input.Focus()
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		title := strings.TrimSpace(m.input.Value())
		m.closeInput()
		if title == "" || title == m.title {
			return m, nil
		}
		return m, m.renameCmd(title)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) renameCmd(title string) tea.Cmd {
	ctx, rename := m.ctx, m.rename
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, SaveTimeout)
		defer cancel()
		return renameResultMsg{title: title, err: rename(ctx, title)}
	}
}
