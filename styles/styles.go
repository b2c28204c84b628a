package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Palette
	Primary   = lipgloss.Color("#fea7e5") // Pink
	Secondary = lipgloss.Color("#00f5ff") // Cyan
	Success   = lipgloss.Color("#a0f077") // Green
	Warning   = lipgloss.Color("#fcf75f") // Yellow
	Error     = lipgloss.Color("#ff4d4d") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#E5E7EB")

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	TextStyle = lipgloss.NewStyle().
			Foreground(Text)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	SuccessBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Warning).
			Padding(1, 3).
			Margin(1, 0)

	// The one-time user code.
	CodeBox = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(Secondary).
		Padding(0, 1).
		Bold(true)

	VerificationBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(1, 2).
			Margin(1, 0).
			Align(lipgloss.Center)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			MarginTop(1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	ListStyle = lipgloss.NewStyle().
			Padding(1, 2)
)

// Status colors a profile status word.
func Status(status string) string {
	switch status {
	case "active":
		return SuccessStyle.Render(status)
	case "expiring":
		return WarningStyle.Render(status)
	case "expired":
		return ErrorStyle.Render(status)
	default:
		return MutedStyle.Render(status)
	}
}
