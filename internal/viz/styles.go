package viz

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("#8BE9FD")
	colorGray  = lipgloss.Color("#6272A4")
	colorWhite = lipgloss.Color("#F8F8F2")
	colorBlack = lipgloss.Color("#282A36")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(colorGray)

	// warm palette, cycled per frame so neighbours stay distinguishable
	flameColors = []lipgloss.Color{
		lipgloss.Color("#FF5555"),
		lipgloss.Color("#FFB86C"),
		lipgloss.Color("#F1FA8C"),
		lipgloss.Color("#FF79C6"),
		lipgloss.Color("#E0A050"),
	}
)

func frameStyle(depth, idx int) lipgloss.Style {
	c := flameColors[(depth+idx)%len(flameColors)]
	return lipgloss.NewStyle().Background(c).Foreground(colorBlack)
}
