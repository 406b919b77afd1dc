package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/starside/pkg/interp"
)

// Theme defines the colors used for error output.
type Theme struct {
	Primary lipgloss.Color
	Error   lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Error:   lipgloss.Color("#ff5f5f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Frame  lipgloss.Style
	Cause  lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Frame:  lipgloss.NewStyle().Foreground(t.Dim),
		Cause:  lipgloss.NewStyle().Foreground(t.Primary),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Dim).Padding(0, 1),
	}
}

// RenderError formats err for a terminal. Script errors show their
// message as the title and the traceback inside a box, with the last
// traceback line, the exception itself, highlighted.
func (s Styles) RenderError(err error) string {
	if err == nil {
		return ""
	}
	var serr *interp.Error
	if !errors.As(err, &serr) || serr.Traceback == "" {
		return s.Title.Render("Error: ") + err.Error()
	}

	lines := strings.Split(strings.TrimRight(serr.Traceback, "\n"), "\n")
	body := make([]string, len(lines))
	for n, line := range lines {
		if n == len(lines)-1 {
			body[n] = s.Cause.Render(line)
			continue
		}
		body[n] = s.Frame.Render(line)
	}
	return s.Title.Render("Error: "+serr.Msg) + "\n" + s.Border.Render(strings.Join(body, "\n"))
}

// RenderError formats err with the default theme.
func RenderError(err error) string {
	return NewStyles(DefaultTheme).RenderError(err)
}
