package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialstream/internal/tui/colors"
)

var (
	// ContentBorderStyle separates the data view from the bars around it
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)
)

// ModeStyle renders the vim-like mode badge
func ModeStyle(insert bool) lipgloss.Style {
	bg := colors.Blue
	if insert {
		bg = colors.Green
	}
	return lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(bg).
		Bold(true).
		Padding(0, 1)
}
