package components

import (
	"strings"
	"testing"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/testutil"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeTableModel_EmptyShowsPlaceholder(t *testing.T) {
	m := NewTradeTableModel(themes.Default, 10)
	m.Resize(100, 20)

	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, EmptyTradesText)
	assert.Contains(t, view, "Page 1 of 1")
	assert.Contains(t, view, "Showing 0-0 of 0")

	m.Load(model.Batch{}, model.LiveAnalysis{})
	assert.Contains(t, tuitest.StripANSI(m.View()), EmptyTradesText)
}

func TestTradeTableModel_Pagination(t *testing.T) {
	m := NewTradeTableModel(themes.Default, 10)
	m.Resize(100, 20)
	m.Load(testutil.Trades(25), model.LiveAnalysis{})

	page := m.Page()
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "1-10", page.Range())
	assert.False(t, m.PreviousPage(), "cannot go before the first page")

	require.True(t, m.NextPage())
	require.True(t, m.NextPage())
	page = m.Page()
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, "21-25", page.Range())
	assert.Len(t, page.Visible, 5)
	assert.False(t, m.NextPage(), "cannot go past the last page")

	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, "Showing 21-25 of 25")
	assert.Contains(t, view, "Page 3 of 3")
	assert.Contains(t, view, "10 per page")

	assert.True(t, m.PreviousPage())
	assert.Equal(t, 2, m.Page().Page)
}

func TestTradeTableModel_LoadResetsToFirstPage(t *testing.T) {
	m := NewTradeTableModel(themes.Default, 10)
	m.Load(testutil.Trades(30), model.LiveAnalysis{})
	m.NextPage()
	m.NextPage()
	require.Equal(t, 3, m.Page().Page)

	m.Load(testutil.Trades(12), model.LiveAnalysis{})
	assert.Equal(t, 1, m.Page().Page)
	assert.Equal(t, 2, m.Page().TotalPages)
}

func TestTradeTableModel_Status(t *testing.T) {
	m := NewTradeTableModel(themes.Default, 10)
	batch := testutil.Trades(3)
	m.Load(batch, model.LiveAnalysis{AnomalyIndices: []int{0, 2}})

	assert.Equal(t, "Matched ⚠ Anomaly", m.status(0, batch[0]))
	assert.Empty(t, m.status(1, batch[1]))
	assert.Equal(t, "⚠ Anomaly", m.status(2, batch[2]))

	flagged := batch[1]
	flagged.IsAnomaly = true
	assert.Equal(t, "⚠ Anomaly", m.status(1, flagged))
}

func TestTradeTableModel_RowFormatting(t *testing.T) {
	m := NewTradeTableModel(themes.Default, 10)
	m.Resize(120, 20)
	m.Load(testutil.Trades(1), model.LiveAnalysis{})

	rows := m.table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "64000.00", rows[0][1])
	assert.Equal(t, "0.001000", rows[0][2])
	assert.Equal(t, "64.00", rows[0][3])
	assert.True(t, strings.Contains(rows[0][4], "Matched"))
}
