package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ActivityModel renders the dashboard stat cards, the recent activity feed
// and the per-day analysis chart.
type ActivityModel struct {
	theme  themes.Theme
	stats  *model.DashboardStats
	chart  model.ActivityChart
	days   int
	width  int
	height int
}

// NewActivityModel creates an empty dashboard panel showing the last days of the chart.
func NewActivityModel(theme themes.Theme, days int) ActivityModel {
	if days <= 0 {
		days = 7
	}
	return ActivityModel{theme: theme, days: days}
}

// SetStats replaces the stat cards and activity feed.
func (m *ActivityModel) SetStats(stats *model.DashboardStats) {
	m.stats = stats
}

// SetChart replaces the activity chart.
func (m *ActivityModel) SetChart(chart model.ActivityChart) {
	m.chart = chart
}

// Update handles messages.
func (m ActivityModel) Update(msg tea.Msg) (ActivityModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Resize(msg.Width, msg.Height)
	}
	return m, nil
}

// Resize sets the panel size.
func (m *ActivityModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the panel.
func (m ActivityModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderCards(),
		"",
		m.renderChart(),
		"",
		m.renderActivities(),
	)
}

func (m ActivityModel) renderCards() string {
	analyses, anomalies := "0", "0"
	if m.stats != nil {
		analyses = strconv.Itoa(m.stats.TotalAnalyses)
		anomalies = strconv.Itoa(m.stats.TotalAnomalies)
	}
	card := func(title, value string, color lipgloss.Color) string {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Border).
			Width(22).
			Align(lipgloss.Center).
			Render(lipgloss.JoinVertical(lipgloss.Center,
				lipgloss.NewStyle().Foreground(m.theme.Muted).Render(title),
				lipgloss.NewStyle().Foreground(color).Bold(true).Render(value)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Analyses", analyses, m.theme.Primary),
		card("Total Anomalies", anomalies, m.theme.Error),
	)
}

func (m ActivityModel) renderChart() string {
	title := m.theme.Subtitle.Render("Analysis Activity")
	dates := m.chart.Dates()
	if len(dates) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Placeholder.Render("No activity yet"))
	}
	if len(dates) > m.days {
		dates = dates[len(dates)-m.days:]
	}

	peak := 1
	for _, d := range dates {
		peak = max(peak, m.chart[d].Analyses)
	}
	barWidth := 30
	if m.width > 60 {
		barWidth = m.width - 40
	}

	lines := []string{title}
	for _, d := range dates {
		p := m.chart[d]
		filled := p.Analyses * barWidth / peak
		flagged := min(p.Anomalies*barWidth/peak, filled)
		bar := lipgloss.NewStyle().Foreground(m.theme.Error).Render(strings.Repeat("█", flagged)) +
			lipgloss.NewStyle().Foreground(m.theme.Primary).Render(strings.Repeat("█", filled-flagged))
		lines = append(lines, fmt.Sprintf("%s %s %d/%d", d, bar, p.Anomalies, p.Analyses))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m ActivityModel) renderActivities() string {
	title := m.theme.Subtitle.Render("Recent Activity")
	if m.stats == nil || len(m.stats.RecentActivities) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Placeholder.Render("No recent activity"))
	}

	lines := []string{title}
	for _, a := range m.stats.RecentActivities {
		when := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(a.Timestamp)
		lines = append(lines, m.theme.Bold.Render(a.Action)+"  "+when)
		if a.Details != "" {
			lines = append(lines, "  "+lipgloss.NewStyle().Foreground(m.theme.Muted).Render(a.Details))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
