package output

import "github.com/charmbracelet/lipgloss"

// Color palette. Single accent color, 256-color codes.
const (
	colorCyan     = "51"  // Primary accent for titles and headers
	colorWhite    = "255" // Important text
	colorGray     = "245" // Secondary text, labels
	colorDarkGray = "238" // Separators
	colorRed      = "196" // Errors
	colorYellow   = "220" // Warnings, degraded notices
	colorGreen    = "114" // Scores
)

// Styles holds the render styles for result output.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Score   lipgloss.Style
	Source  lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Source:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Title:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Source:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
