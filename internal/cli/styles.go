package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorSuccess = lipgloss.Color("35")  // Green
	colorWarning = lipgloss.Color("214") // Gold/yellow
	colorError   = lipgloss.Color("196") // Red
	colorDim     = lipgloss.Color("241") // Gray
	colorAccent  = lipgloss.Color("39")  // Blue
)

const (
	symbolCheck  = "✓"
	symbolCross  = "✗"
	symbolBullet = "●"
	symbolArrow  = "▸"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
