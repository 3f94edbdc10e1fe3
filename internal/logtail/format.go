package logtail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// Styles colour formatted entries.
type Styles struct {
	Time      lipgloss.Style
	Component lipgloss.Style
	Key       lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Info      lipgloss.Style
	Debug     lipgloss.Style
}

// DefaultStyles returns the palette used by `sheetsync logs`.
func DefaultStyles() Styles {
	return Styles{
		Time:      lipgloss.NewStyle().Foreground(lipgloss.Color("#71839b")),
		Component: lipgloss.NewStyle().Foreground(lipgloss.Color("#86abdc")),
		Key:       lipgloss.NewStyle().Foreground(lipgloss.Color("#71839b")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d")).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#dbc074")),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("#81b29a")),
		Debug:     lipgloss.NewStyle().Foreground(lipgloss.Color("#738091")),
	}
}

// PlainStyles renders without escape codes.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Time: s, Component: s, Key: s, Error: s, Warning: s, Info: s, Debug: s}
}

// Format renders e on one line: time, level, component, message, then the
// error and remaining fields.
func Format(e Entry, st Styles) string {
	if !e.Parsed {
		return e.Raw
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(st.Time.Render(e.Time.Local().Format("15:04:05")))
		b.WriteByte(' ')
	}
	b.WriteString(levelStyle(e.Level, st).Render(fmt.Sprintf("%-5s", levelLabel(e.Level))))
	if e.Component != "" {
		b.WriteString(" [")
		b.WriteString(st.Component.Render(e.Component))
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.Error != "" {
		b.WriteByte(' ')
		b.WriteString(st.Key.Render("error="))
		b.WriteString(st.Error.Render(e.Error))
	}
	for _, k := range e.FieldKeys() {
		b.WriteByte(' ')
		b.WriteString(st.Key.Render(k + "="))
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

func levelLabel(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}

func levelStyle(l logrus.Level, st Styles) lipgloss.Style {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return st.Error
	case logrus.WarnLevel:
		return st.Warning
	case logrus.InfoLevel:
		return st.Info
	default:
		return st.Debug
	}
}
