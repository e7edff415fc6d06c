// Package cli provides styled terminal output and interactive helpers for
// the chainwatch commands.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette shared by the plain-text commands.
var (
	PrimaryColor = lipgloss.Color("#F7931A")
	NormalColor  = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	AnomalyColor = lipgloss.Color("#FF6B6B")
	InfoColor    = lipgloss.Color("#95E1D3")
	SubtleColor  = lipgloss.Color("#666666")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	normalStyle  = lipgloss.NewStyle().Foreground(NormalColor)
	warningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	anomalyStyle = lipgloss.NewStyle().Foreground(AnomalyColor)
	infoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	boldStyle    = lipgloss.NewStyle().Bold(true)

	// boxStyle frames summaries such as a finished simulation.
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

// Icons.
const (
	SuccessIcon = "✓"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ChainIcon   = "⛓️"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return normalStyle.Render(SuccessIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return warningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return infoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the chain icon.
func FormatTitle(title string) string {
	return titleStyle.Render(ChainIcon + " " + title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// FormatVerdict renders a transaction verdict in the anomaly or normal color.
func FormatVerdict(verdict string, anomalous bool) string {
	if anomalous {
		return anomalyStyle.Bold(true).Render(WarningIcon + " " + verdict)
	}
	return normalStyle.Bold(true).Render(SuccessIcon + " " + verdict)
}

// RenderBox renders content under a title in a rounded box.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.UnsetMargins().Render(title),
		content,
	))
}

// RenderKeyValues renders aligned "key: value" rows.
func RenderKeyValues(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		key := subtleStyle.Width(width + 2).Render(r[0] + ":")
		lines = append(lines, key+boldStyle.Render(r[1]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
