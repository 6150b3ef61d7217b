package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorText    = lipgloss.Color("#cdd6f4")
	colorMuted   = lipgloss.Color("#a6adc8")
	colorSurface = lipgloss.Color("#45475a")
	colorAccent  = lipgloss.Color("#a6e3a1")
	colorFocus   = lipgloss.Color("#b4befe")
	colorError   = lipgloss.Color("#f38ba8")
	colorWarn    = lipgloss.Color("#fab387")

	appStyle = lipgloss.NewStyle().Padding(1, 2)

	titleStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorText).Width(22)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 2)
	activeTabStyle = tabStyle.
			Foreground(colorText).
			Background(colorSurface).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface).
			Padding(0, 1)
	activePaneStyle = paneStyle.BorderForeground(colorFocus)

	cursorStyle = lipgloss.NewStyle().Foreground(colorFocus).Bold(true)
)

func pane(active bool) lipgloss.Style {
	if active {
		return activePaneStyle
	}
	return paneStyle
}

// cursor marks the row under the cursor of a focused list.
func cursor(on bool) string {
	if on {
		return cursorStyle.Render("> ")
	}
	return "  "
}
