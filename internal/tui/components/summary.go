package components

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Card titles shared by the live and simulation summaries.
const (
	CardTotal     = "Total Transactions"
	CardAnomalies = "Anomalies Detected"
	CardAccuracy  = "Accuracy"
	CardTime      = "Analysis Time"
	CardUpdated   = "Last Update"
)

// Card is one headline figure.
type Card struct {
	Title string
	Value string
	Color lipgloss.Color
}

// SummaryModel renders analysis results as a row of cards with a
// normal/anomaly split bar underneath.
type SummaryModel struct {
	theme     themes.Theme
	bar       progress.Model
	cards     []Card
	normal    int
	anomalies int
	width     int
	loaded    bool
}

// NewSummaryModel creates a summary showing zeroed live figures.
func NewSummaryModel(theme themes.Theme) SummaryModel {
	bar := progress.New(
		progress.WithSolidFill(string(theme.Error)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(theme.Success)
	bar.Width = 40

	m := SummaryModel{theme: theme, bar: bar}
	m.SetLive(model.LiveAnalysis{}, 0, time.Time{})
	m.loaded = false
	return m
}

// SetLive shows the result of one live analysis tick that took elapsed and
// arrived at.
func (m *SummaryModel) SetLive(a model.LiveAnalysis, elapsed time.Duration, at time.Time) {
	updated, took := "-", "-"
	if !at.IsZero() {
		updated = at.Format("15:04:05")
		took = fmt.Sprintf("%.2fs", elapsed.Seconds())
	}

	m.cards = []Card{
		{Title: CardTotal, Value: strconv.Itoa(a.TotalTransactions), Color: m.theme.Primary},
		{Title: CardAnomalies, Value: strconv.Itoa(a.AnomaliesDetected), Color: m.theme.Error},
		{Title: CardAccuracy, Value: model.FormatAccuracy(a.AccuracyScore), Color: m.theme.Success},
		{Title: CardUpdated, Value: updated, Color: m.theme.Foreground},
		{Title: CardTime, Value: took, Color: m.theme.Info},
	}
	m.anomalies = a.AnomaliesDetected
	m.normal = max(a.TotalTransactions-a.AnomaliesDetected, 0)
	m.loaded = true
}

// SetSimulation shows a testnet simulation summary.
func (m *SummaryModel) SetSimulation(s model.SimulationSummary) {
	m.cards = []Card{
		{Title: CardTotal, Value: strconv.Itoa(s.TotalTransactions), Color: m.theme.Primary},
		{Title: CardAnomalies, Value: strconv.Itoa(s.AnomaliesDetected), Color: m.theme.Error},
		{Title: CardAccuracy, Value: model.FormatAccuracy(s.AccuracyScore), Color: m.theme.Success},
		{Title: CardTime, Value: s.AnalysisClock(), Color: m.theme.Info},
	}
	m.anomalies = s.AnomaliesDetected
	m.normal = s.NormalCount()
	m.loaded = true
}

// Cards returns the current figures.
func (m SummaryModel) Cards() []Card {
	return m.cards
}

// Loaded reports whether any result has been shown.
func (m SummaryModel) Loaded() bool {
	return m.loaded
}

// Update handles messages.
func (m SummaryModel) Update(msg tea.Msg) (SummaryModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Resize(msg.Width)
	}
	return m, nil
}

// Resize adjusts the card widths.
func (m *SummaryModel) Resize(width int) {
	m.width = width
	m.bar.Width = min(max(width-30, 10), 60)
}

// View renders the cards and split bar.
func (m SummaryModel) View() string {
	cardWidth := 18
	if n := len(m.cards); n > 0 && m.width > 0 {
		cardWidth = max(m.width/n-2, 14)
	}

	rendered := make([]string, 0, len(m.cards))
	for _, c := range m.cards {
		title := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(c.Title)
		value := lipgloss.NewStyle().Foreground(c.Color).Bold(true).Render(c.Value)
		rendered = append(rendered, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Border).
			Width(cardWidth).
			Align(lipgloss.Center).
			Render(lipgloss.JoinVertical(lipgloss.Center, title, value)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, rendered...),
		m.renderSplit(),
	)
}

func (m SummaryModel) renderSplit() string {
	total := m.normal + m.anomalies
	ratio := 0.0
	if total > 0 {
		ratio = float64(m.anomalies) / float64(total)
	}
	legend := fmt.Sprintf(" %d normal / %d anomalous", m.normal, m.anomalies)
	return m.bar.ViewAs(ratio) + lipgloss.NewStyle().Foreground(m.theme.Muted).Render(legend)
}
