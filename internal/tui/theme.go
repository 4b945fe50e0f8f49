// Package tui renders composed views in the terminal: a bubbletea
// inspector that draws a session's geometry as bordered boxes and drives
// the same layout operations the browser shell issues.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the lipgloss colors and styles the inspector draws with.
type Theme struct {
	Background lipgloss.Color
	Surface    lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color
	Error      lipgloss.Color

	Title      lipgloss.Style
	Subtle     lipgloss.Style
	ErrorStyle lipgloss.Style

	Badge      lipgloss.Style
	BadgeMuted lipgloss.Style

	PaneBox       lipgloss.Style
	PaneBoxActive lipgloss.Style
	PaneTitle     lipgloss.Style
	PaneURL       lipgloss.Style
	Divider       lipgloss.Style

	InputBar lipgloss.Style
}

// NewTheme builds the default dark theme.
func NewTheme() *Theme {
	t := &Theme{
		Background: lipgloss.Color("#1d2021"),
		Surface:    lipgloss.Color("#282828"),
		Text:       lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#928374"),
		Accent:     lipgloss.Color("#83a598"),
		Border:     lipgloss.Color("#504945"),
		Error:      lipgloss.Color("#fb4934"),
	}
	t.buildStyles()
	return t
}

// buildStyles creates all derived lipgloss styles.
func (t *Theme) buildStyles() {
	t.Title = lipgloss.NewStyle().
		Foreground(t.Text).
		Bold(true)

	t.Subtle = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(t.Error)

	t.Badge = lipgloss.NewStyle().
		Foreground(t.Background).
		Background(t.Accent).
		Padding(0, 1)

	t.BadgeMuted = lipgloss.NewStyle().
		Foreground(t.Text).
		Background(t.Surface).
		Padding(0, 1)

	t.PaneBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	t.PaneBoxActive = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1)

	t.PaneTitle = lipgloss.NewStyle().
		Foreground(t.Text).
		Bold(true)

	t.PaneURL = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.Divider = lipgloss.NewStyle().
		Foreground(t.Border)

	t.InputBar = lipgloss.NewStyle().
		Foreground(t.Text).
		Background(t.Surface).
		Padding(0, 1)
}

// newURLInput creates the themed insert prompt.
func newURLInput(theme *Theme) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "example.org or https://..."
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(theme.Muted)
	ti.TextStyle = lipgloss.NewStyle().Foreground(theme.Text)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(theme.Accent)
	ti.PromptStyle = lipgloss.NewStyle().Foreground(theme.Accent)
	ti.Prompt = "+ "
	ti.CharLimit = 2048
	return ti
}
