// Package style holds the CLI's terminal styling. Output falls back to
// plain text when stdout is not a terminal or the terminal has no color.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("39")  // blue
	colorSuccess = lipgloss.Color("76")  // green
	colorWarning = lipgloss.Color("214") // orange
	colorError   = lipgloss.Color("196") // red
	colorMuted   = lipgloss.Color("242") // gray
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorPrimary)

	Success = lipgloss.NewStyle().
		Foreground(colorSuccess)

	Error = lipgloss.NewStyle().
		Foreground(colorError)

	Warning = lipgloss.NewStyle().
		Foreground(colorWarning)

	Muted = lipgloss.NewStyle().
		Foreground(colorMuted)

	Label = lipgloss.NewStyle().
		Bold(true)
)

// Enabled reports whether styled output should be produced.
func Enabled() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// Render applies s to text when styling is enabled, else returns text as-is.
func Render(s lipgloss.Style, text string) string {
	if !Enabled() {
		return text
	}
	return s.Render(text)
}
