package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the editor. Letters and digits
// are reserved for typing into cells, so commands live on ctrl and function
// keys.
type keyMap struct {
	// Global
	Quit       key.Binding
	Save       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Rename     key.Binding

	// Cell actions
	Edit  key.Binding
	Clear key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Next     key.Binding
	Prev     key.Binding
	RowStart key.Binding
	RowEnd   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Input
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("ctrl+q", "Quit"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save now"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "Cycle theme"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Rename"),
		),

		Edit: key.NewBinding(
			key.WithKeys("enter", "f2"),
			key.WithHelp("enter", "Edit cell"),
		),
		Clear: key.NewBinding(
			key.WithKeys("delete", "backspace"),
			key.WithHelp("del", "Clear cell"),
		),

		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "Move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "Move left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "Move right"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next cell"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous cell"),
		),
		RowStart: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "Row start"),
		),
		RowEnd: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "Row end"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "Page down"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the status bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Save, k.Rename, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Next, k.Prev, k.RowStart, k.RowEnd, k.PageUp, k.PageDown},
		{k.Edit, k.Clear, k.Confirm, k.Cancel},
		{k.Save, k.Rename, k.CycleTheme, k.Help, k.Quit},
	}
}
