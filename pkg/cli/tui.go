package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal rendering.
type Theme struct {
	Primary lipgloss.Color // accent
	Dim     lipgloss.Color // pending text and status
	Error   lipgloss.Color
}

// DefaultTheme is the default green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#ff5f87"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title     lipgloss.Style
	Speaker   lipgloss.Style
	Confirmed lipgloss.Style
	Pending   lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Speaker:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Confirmed: lipgloss.NewStyle(),
		Pending:   lipgloss.NewStyle().Foreground(t.Dim).Italic(true),
		Status:    lipgloss.NewStyle().Foreground(t.Dim),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// TranscriptView renders a live transcript: confirmed text in the normal
// style followed by pending text dimmed.
type TranscriptView struct {
	Styles Styles
	Width  int

	lines int
}

// Render returns the view for the given text. Width <= 0 disables wrapping.
func (v *TranscriptView) Render(confirmed, pending, status string) string {
	body := v.Styles.Confirmed.Render(confirmed) + v.Styles.Pending.Render(pending)
	if v.Width > 0 {
		body = lipgloss.NewStyle().Width(v.Width).Render(body)
	}
	if status == "" {
		return body
	}
	return body + "\n" + v.Styles.Status.Render("["+status+"]")
}

// Redraw returns the escape sequence that erases the previous frame followed
// by the new one. It is meant for a terminal that the view owns.
func (v *TranscriptView) Redraw(confirmed, pending, status string) string {
	frame := v.Render(confirmed, pending, status)
	var b strings.Builder
	b.WriteString("\r")
	if v.lines > 1 {
		// back to the first line of the previous frame
		fmt.Fprintf(&b, "\x1b[%dA", v.lines-1)
	}
	b.WriteString("\x1b[J")
	b.WriteString(frame)
	v.lines = lipgloss.Height(frame)
	return b.String()
}

// SpeakerLine renders "label: text" with the label highlighted.
func (s Styles) SpeakerLine(label, text string) string {
	return s.Speaker.Render(label+":") + " " + text
}
