package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorText    = lipgloss.Color("#cdd6f4")
	colorMuted   = lipgloss.Color("#a6adc8")
	colorBorder  = lipgloss.Color("#45475a")
	colorAccent  = lipgloss.Color("#74c7ec")
	colorActive  = lipgloss.Color("#a6e3a1")
	colorWarning = lipgloss.Color("#fab387")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1e1e2e")).
			Background(colorAccent).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Foreground(colorText).
			Padding(0, 1)

	promptBoxStyle = boxStyle.BorderForeground(colorWarning)

	programStyle = lipgloss.NewStyle().Foreground(colorActive).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	clockStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	dueStyle     = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	selectStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
)
