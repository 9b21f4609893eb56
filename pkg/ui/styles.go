// Package ui holds the terminal styling for the CLI: severity and risk
// colors, the banner, and the batch progress line.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/csrfshield/csrfshield/pkg/finding"
)

// Color palette.
var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#00D4AA")

	// Severity colors, matching common security-tool conventions.
	Critical = lipgloss.Color("#FF0000")
	High     = lipgloss.Color("#FF6B6B")
	Medium   = lipgloss.Color("#FFD93D")
	Low      = lipgloss.Color("#6BCB77")
	Info     = lipgloss.Color("#4D96FF")

	Muted = lipgloss.Color("#6B7280")
)

// Pre-configured styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().Foreground(Muted)

	severityStyles = map[finding.Severity]lipgloss.Style{
		finding.Critical: lipgloss.NewStyle().Bold(true).Foreground(Critical),
		finding.High:     lipgloss.NewStyle().Foreground(High),
		finding.Medium:   lipgloss.NewStyle().Foreground(Medium),
		finding.Low:      lipgloss.NewStyle().Foreground(Low),
		finding.Info:     lipgloss.NewStyle().Foreground(Info),
	}

	levelStyles = map[finding.RiskLevel]lipgloss.Style{
		finding.RiskCritical: lipgloss.NewStyle().Bold(true).Foreground(Critical),
		finding.RiskHigh:     lipgloss.NewStyle().Foreground(High),
		finding.RiskMedium:   lipgloss.NewStyle().Foreground(Medium),
		finding.RiskLow:      lipgloss.NewStyle().Foreground(Low),
	}
)

// SeverityBadge renders a severity tag in its color.
func SeverityBadge(s finding.Severity) string {
	if style, ok := severityStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

// LevelBadge renders a risk level in its color.
func LevelBadge(l finding.RiskLevel) string {
	if style, ok := levelStyles[l]; ok {
		return style.Render(string(l))
	}
	return string(l)
}

// Banner renders the tool banner line.
func Banner(version string) string {
	return TitleStyle.Render("csrfshield") + " " + MutedStyle.Render("v"+version)
}
