package dashboard

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors adapt to the active theme through lipgloss.HasDarkBackground.
var (
	textColor   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F0F0F0"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8C8C8C"}
	borderColor = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4A4A4A"}
	accentColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#C89A3A"}
	errorColor  = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF4D4F"}

	titleStyle        = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	headerStyle       = lipgloss.NewStyle().Foreground(mutedColor)
	activeWindowStyle = lipgloss.NewStyle().Foreground(textColor).Bold(true).Underline(true)
	windowStyle       = lipgloss.NewStyle().Foreground(mutedColor)
	chipStyle         = lipgloss.NewStyle().
				Foreground(textColor).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(borderColor)
	focusedChipStyle = chipStyle.
				BorderForeground(accentColor).
				Bold(true)
	tooltipStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(borderColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor)
)

func seriesStyle(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}
