package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles colour short ids, kinds and placeholders when the output is a
// terminal. On other writers the renderer falls back to plain text.
type styles struct {
	ID      lipgloss.Style
	Kind    lipgloss.Style
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		ID:      r.NewStyle().Foreground(lipgloss.Color("#06B6D4")), // Cyan
		Kind:    r.NewStyle().Foreground(lipgloss.Color("#7C3AED")), // Purple
		Title:   r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	}
}
