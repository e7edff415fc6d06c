package components

import (
	"strconv"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EmptyAlertsText is shown when no alert is active.
const EmptyAlertsText = "No alerts"

// AlertListModel renders active anomaly alerts, newest first.
type AlertListModel struct {
	theme  themes.Theme
	alerts []model.Alert
	width  int
	height int
}

// NewAlertListModel creates an empty alert panel.
func NewAlertListModel(theme themes.Theme) AlertListModel {
	return AlertListModel{theme: theme, height: 6}
}

// SetAlerts replaces the displayed alerts.
func (m *AlertListModel) SetAlerts(alerts []model.Alert) {
	m.alerts = alerts
}

// IsEmpty reports whether the placeholder is showing.
func (m AlertListModel) IsEmpty() bool {
	return len(m.alerts) == 0
}

// Update handles messages.
func (m AlertListModel) Update(msg tea.Msg) (AlertListModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Resize(msg.Width, msg.Height)
	}
	return m, nil
}

// Resize sets the panel size.
func (m *AlertListModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the panel.
func (m AlertListModel) View() string {
	title := m.theme.Subtitle.Render("Anomaly Alerts")
	if m.IsEmpty() {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Placeholder.Render(EmptyAlertsText))
	}

	lines := []string{title}
	limit := len(m.alerts)
	if m.height > 2 && limit > m.height-2 {
		limit = m.height - 2
	}
	for _, a := range m.alerts[:limit] {
		when := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(a.CreatedAt.Format("15:04:05"))
		lines = append(lines, m.theme.StatusError.Render("⚠ "+a.Message())+" "+when)
	}
	if hidden := len(m.alerts) - limit; hidden > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(m.theme.Muted).Render(
			"… and "+strconv.Itoa(hidden)+" more"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
