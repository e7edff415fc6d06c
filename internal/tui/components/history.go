package components

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EmptyHistoryText is shown before any simulation has run.
const EmptyHistoryText = "No simulations run yet"

// HistoryModel lists previous testnet runs with aggregate stats.
type HistoryModel struct {
	theme   themes.Theme
	history *model.SimulationHistory
	table   table.Model
	width   int
	height  int
}

// NewHistoryModel creates an empty history panel.
func NewHistoryModel(theme themes.Theme) HistoryModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 5},
			{Title: "Timestamp", Width: 20},
			{Title: "Transactions", Width: 13},
			{Title: "Anomalies", Width: 10},
			{Title: "Type", Width: 8},
			{Title: "Accuracy", Width: 9},
			{Title: "Duration", Width: 9},
		}),
		table.WithFocused(false),
		table.WithHeight(6),
	)
	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	return HistoryModel{theme: theme, table: t, height: 6}
}

// SetHistory replaces the displayed runs.
func (m *HistoryModel) SetHistory(h *model.SimulationHistory) {
	m.history = h
	if h == nil {
		m.table.SetRows(nil)
		return
	}
	rows := make([]table.Row, 0, len(h.Runs))
	for _, r := range h.Runs {
		rows = append(rows, table.Row{
			strconv.Itoa(r.ID),
			r.Timestamp,
			strconv.Itoa(r.TotalTransactions),
			strconv.Itoa(r.AnomaliesDetected),
			"Testnet",
			model.FormatAccuracy(r.AccuracyScore),
			r.DurationLabel(),
		})
	}
	m.table.SetRows(rows)
}

// Update handles messages.
func (m HistoryModel) Update(msg tea.Msg) (HistoryModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Resize(msg.Width, msg.Height)
	}
	return m, nil
}

// Resize sets the panel size.
func (m *HistoryModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(width)
	m.table.SetHeight(max(height-3, 3))
}

// View renders the stats line and the runs table.
func (m HistoryModel) View() string {
	title := m.theme.Subtitle.Render("Simulation History")

	var stats model.SimulationStats
	if m.history != nil {
		stats = m.history.Stats
	}
	line := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf(
		"• Total Runs: %d  • Anomalies Found: %d  • Avg. Accuracy: %s",
		stats.TotalRuns, stats.TotalAnomalies, model.FormatAccuracy(stats.AvgAccuracy)))

	if m.history == nil || len(m.history.Runs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, line, m.theme.Placeholder.Render(EmptyHistoryText))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, line, m.table.View())
}
