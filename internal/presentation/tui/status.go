package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Status kinds for StatusLine.
const (
	StatusInfo = iota
	StatusWarn
	StatusError
)

// StatusLine formats a one-line system message for w, colored by kind when
// w is a terminal.
func StatusLine(w io.Writer, kind int, msg string) string {
	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().Foreground(lipgloss.Color("#38bdf8"))
	switch kind {
	case StatusWarn:
		style = r.NewStyle().Foreground(lipgloss.Color("#facc15"))
	case StatusError:
		style = r.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true)
	}
	return style.Render(">>> " + msg)
}
