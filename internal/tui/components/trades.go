package components

import (
	"fmt"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/pager"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EmptyTradesText replaces the table body when the batch is empty.
const EmptyTradesText = "No recent transactions."

// TradeTableModel shows one page of the latest trade batch.
type TradeTableModel struct {
	theme    themes.Theme
	cursor   *pager.Cursor[model.Transaction]
	analysis model.LiveAnalysis
	table    table.Model
	width    int
	height   int
}

// NewTradeTableModel creates an empty table paging pageSize trades at a time.
func NewTradeTableModel(theme themes.Theme, pageSize int) TradeTableModel {
	t := table.New(
		table.WithColumns(tradeColumns(80)),
		table.WithFocused(false),
		table.WithHeight(10),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)

	return TradeTableModel{
		theme:  theme,
		cursor: pager.NewCursor[model.Transaction](pageSize),
		table:  t,
		height: 10,
	}
}

func tradeColumns(width int) []table.Column {
	// time, price, qty, total, status
	fixed := 10 + 12 + 12 + 12
	status := width - fixed - 10
	if status < 10 {
		status = 10
	}
	return []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Price", Width: 12},
		{Title: "Qty", Width: 12},
		{Title: "Total", Width: 12},
		{Title: "Status", Width: status},
	}
}

// Load replaces the batch and returns to page 1.
func (m *TradeTableModel) Load(batch model.Batch, analysis model.LiveAnalysis) {
	m.cursor.Load(batch)
	m.analysis = analysis
	m.refresh()
}

// NextPage moves forward one page. It reports whether the page changed.
func (m *TradeTableModel) NextPage() bool {
	if !m.cursor.Next() {
		return false
	}
	m.refresh()
	return true
}

// PreviousPage moves back one page. It reports whether the page changed.
func (m *TradeTableModel) PreviousPage() bool {
	if !m.cursor.Previous() {
		return false
	}
	m.refresh()
	return true
}

// Page returns the visible page.
func (m TradeTableModel) Page() pager.Page[model.Transaction] {
	return m.cursor.Current()
}

// Update handles messages.
func (m TradeTableModel) Update(msg tea.Msg) (TradeTableModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Resize(msg.Width, msg.Height)
	}
	return m, nil
}

// Resize adjusts the table to the available space.
func (m *TradeTableModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(tradeColumns(width))
	m.table.SetWidth(width)
	// header and pagination footer
	m.table.SetHeight(max(height-3, 3))
}

func (m *TradeTableModel) refresh() {
	page := m.cursor.Current()
	rows := make([]table.Row, 0, len(page.Visible))
	for i, tx := range page.Visible {
		rows = append(rows, table.Row{
			tx.Timestamp().Format("15:04:05"),
			tx.Price.StringFixed(2),
			tx.Qty.StringFixed(6),
			tx.Notional().StringFixed(2),
			m.status(page.StartIndex+i, tx),
		})
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m TradeTableModel) status(index int, tx model.Transaction) string {
	status := ""
	if tx.IsBestMatch {
		status = "Matched"
	}
	if m.analysis.IsAnomalyIndex(index) || bool(tx.IsAnomaly) {
		if status != "" {
			status += " "
		}
		status += "⚠ Anomaly"
	}
	return status
}

// View renders the table with its pagination footer.
func (m TradeTableModel) View() string {
	page := m.cursor.Current()

	var body string
	if page.Empty() {
		body = m.theme.Placeholder.Render("◷ " + EmptyTradesText)
	} else {
		body = m.table.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer(page))
}

func (m TradeTableModel) footer(page pager.Page[model.Transaction]) string {
	prev := m.theme.Normal.Render("← Prev")
	if !m.cursor.HasPrevious() {
		prev = m.theme.Disabled.Render("← Prev")
	}
	next := m.theme.Normal.Render("Next →")
	if !m.cursor.HasNext() {
		next = m.theme.Disabled.Render("Next →")
	}

	info := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(
		fmt.Sprintf("Showing %s of %d │ %s │ %d per page",
			page.Range(), page.TotalItems, page.Label(), m.cursor.PageSize()),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, prev, "  ", info, "  ", next)
}
