package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// styles holds the lipgloss styles this CLI prints with: a palette
// trimmed to the handful of roles a non-interactive demonstrator needs.
type styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Label   lipgloss.Style
}

func coloredStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("154")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func plainStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
	}
}

// isTTY reports whether w is a terminal, used to gate color output.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// stylesFor picks colored or plain styles depending on whether w is a
// terminal and NO_COLOR is unset.
func stylesFor(w io.Writer) styles {
	if os.Getenv("NO_COLOR") != "" || !isTTY(w) {
		return plainStyles()
	}
	return coloredStyles()
}
