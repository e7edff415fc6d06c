package components

import (
	"strings"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// MarketModel shows the 24h ticker and a close-price sparkline.
type MarketModel struct {
	theme  themes.Theme
	data   *model.MarketData
	width  int
	height int
}

// NewMarketModel creates an empty market panel.
func NewMarketModel(theme themes.Theme) MarketModel {
	return MarketModel{theme: theme}
}

// SetData replaces the market snapshot.
func (m *MarketModel) SetData(data *model.MarketData) {
	m.data = data
}

// Update handles messages.
func (m MarketModel) Update(msg tea.Msg) (MarketModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Resize(msg.Width, msg.Height)
	}
	return m, nil
}

// Resize sets the panel size.
func (m *MarketModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the panel.
func (m MarketModel) View() string {
	title := m.theme.Subtitle.Render("BTC/USDT Market")
	if m.data == nil || m.data.Ticker == nil {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Waiting for market data..."))
	}

	t := m.data.Ticker
	changeStyle := m.theme.StatusSuccess
	if t.PriceChangePercent.IsNegative() {
		changeStyle = m.theme.StatusError
	}

	ticker := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Bold.Render("$"+FormatGrouped(t.LastPrice, 2)),
		"  ",
		changeStyle.Render(t.PriceChangePercent.StringFixed(2)+"%"),
		"  ",
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Vol "+FormatGrouped(t.Volume, 2)),
	)

	closes := make([]decimal.Decimal, 0, len(m.data.PriceChart))
	for _, k := range m.data.PriceChart {
		closes = append(closes, k.Close)
	}
	width := len(closes)
	if m.width > 0 && width > m.width {
		width = m.width
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		ticker,
		lipgloss.NewStyle().Foreground(m.theme.Primary).Render(Sparkline(closes, width)),
	)
}

// Sparkline renders values as block characters, keeping the last width points.
func Sparkline(values []decimal.Decimal, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkLevels) - 1))

	var b strings.Builder
	for _, v := range values {
		level := 0
		if !span.IsZero() {
			level = int(v.Sub(lo).Div(span).Mul(top).Round(0).IntPart())
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

// FormatGrouped renders d with comma thousands separators and places decimals.
func FormatGrouped(d decimal.Decimal, places int32) string {
	s := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
