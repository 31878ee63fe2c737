package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#3b82f6")
	Success = lipgloss.Color("#22c55e")
	Error   = lipgloss.Color("#ef4444")
	Text    = lipgloss.Color("#E0E0E0")
	Muted   = lipgloss.Color("#90A4AE")

	BorderColor = lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#30363D"}
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(0, 1)

	MetaStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	SelectedCardStyle = CardStyle.
				BorderForeground(Primary)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1).
			MarginTop(1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Error).
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().Foreground(Muted)
)

// statusStyle colors text with a hex color from the status registry.
func statusStyle(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true)
}

func notificationStyle(hex string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(hex)).
		Padding(0, 1)
}
