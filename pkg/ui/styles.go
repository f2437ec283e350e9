package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/oobkit/oobkit/pkg/metrics"
)

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#00D4AA")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
)

// Pre-configured styles
var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	PassStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)
)

// OutcomeStyle returns the style for a poll outcome.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case metrics.OutcomeConfirmed:
		return PassStyle
	case metrics.OutcomeFailed:
		return FailStyle
	default:
		return WarnStyle
	}
}

// Bracket renders "[text]" with text in style.
func Bracket(text string, style lipgloss.Style) string {
	return BracketStyle.Render("[") + style.Render(text) + BracketStyle.Render("]")
}
