package ux

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/candidash/internal/gate"
)

// Styles renders the CLI's text output.
type Styles struct {
	Title   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Failure lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles returns styles for w. Colour is only emitted when w is a
// terminal that supports it; noColor strips all styling.
func NewStyles(w io.Writer, noColor bool) Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return Styles{Title: plain, Key: plain, Value: plain, Success: plain, Warning: plain, Failure: plain, Muted: plain}
	}

	r := lipgloss.NewRenderer(w)
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Key:     r.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
		Value:   r.NewStyle().Foreground(lipgloss.Color("252")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Failure: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Decision renders a gate decision.
func (s Styles) Decision(d gate.Decision) string {
	switch d {
	case gate.Allow:
		return s.Success.Render(string(d))
	case gate.Pending:
		return s.Warning.Render(string(d))
	default:
		return s.Failure.Render(string(d))
	}
}

// Mark renders a check mark or a cross.
func (s Styles) Mark(ok bool) string {
	if ok {
		return s.Success.Render("✓")
	}
	return s.Failure.Render("✗")
}

// Field renders an aligned "key: value" line without the trailing newline.
func (s Styles) Field(key, value string) string {
	return s.Key.Render(padRight(key+":", 14)) + s.Value.Render(value)
}

func padRight(v string, width int) string {
	for len(v) < width {
		v += " "
	}
	return v
}
