package components

import (
	"testing"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/testutil"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertListModel(t *testing.T) {
	m := NewAlertListModel(themes.Default)
	assert.True(t, m.IsEmpty())
	assert.Contains(t, tuitest.StripANSI(m.View()), EmptyAlertsText)

	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)
	m.SetAlerts(testutil.Alerts(base, 2))
	assert.False(t, m.IsEmpty())

	view := tuitest.StripANSI(m.View())
	assert.NotContains(t, view, EmptyAlertsText)
	assert.Contains(t, view, "Anomaly Detected! Found")
}

func TestAlertListModel_Overflow(t *testing.T) {
	m := NewAlertListModel(themes.Default)
	m.Resize(60, 4)
	m.SetAlerts(testutil.Alerts(time.Now(), 5))

	assert.Contains(t, tuitest.StripANSI(m.View()), "… and 3 more")
}

func TestNarrationModel(t *testing.T) {
	m := NewNarrationModel(themes.Default, 80, 20)
	assert.Contains(t, tuitest.StripANSI(m.View()), "Waiting for simulation...")

	anomalous := testutil.Transfer("acct-1", "acct-2", 9000, true, 10, 12)
	m.Append(playback.Step{Tx: anomalous, Index: 0, Stage: playback.StageProcessing, Text: "Processing transaction 1", Rendered: true})
	m.Append(playback.Step{Tx: anomalous, Index: 0, Stage: playback.StageDecision, Text: "Anomaly Detected", Rendered: true})

	require.Len(t, m.Steps(), 2)
	view := tuitest.StripANSI(m.View())
	assert.True(t, tuitest.ContainsInOrder(view, "#1", "Processing", "Processing transaction 1", "⚠ Anomaly Detected"))

	m.Clear()
	assert.Empty(t, m.Steps())
	assert.Contains(t, tuitest.StripANSI(m.View()), "Waiting for simulation...")
}

func TestHistoryModel(t *testing.T) {
	m := NewHistoryModel(themes.Default)
	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, EmptyHistoryText)
	assert.Contains(t, view, "Total Runs: 0")

	m.Resize(100, 10)
	m.SetHistory(&model.SimulationHistory{
		Runs: []model.SimulationRun{
			{ID: 7, Timestamp: "2024-06-10 12:00:00", TotalTransactions: 20, AnomaliesDetected: 4, AccuracyScore: 0.8},
		},
		Stats: model.SimulationStats{TotalRuns: 1, TotalAnomalies: 4, AvgAccuracy: 0.8},
	})

	view = tuitest.StripANSI(m.View())
	assert.NotContains(t, view, EmptyHistoryText)
	assert.Contains(t, view, "Total Runs: 1")
	assert.Contains(t, view, "Anomalies Found: 4")
	assert.Contains(t, view, "Avg. Accuracy: 80.0%")
	assert.Contains(t, view, "Testnet")
}

func TestActivityModel(t *testing.T) {
	m := NewActivityModel(themes.Default, 2)
	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, "No activity yet")
	assert.Contains(t, view, "No recent activity")

	m.SetStats(&model.DashboardStats{
		TotalAnalyses:  12,
		TotalAnomalies: 3,
		RecentActivities: []model.Activity{
			{Action: "Live Analysis", Timestamp: "2024-06-10 12:00", Details: "Found 3 anomalies"},
		},
	})
	m.SetChart(model.ActivityChart{
		"2024-06-08": {Analyses: 1},
		"2024-06-09": {Analyses: 4, Anomalies: 1},
		"2024-06-10": {Analyses: 2, Anomalies: 2},
	})

	view = tuitest.StripANSI(m.View())
	assert.Contains(t, view, "12")
	assert.Contains(t, view, "Found 3 anomalies")
	assert.NotContains(t, view, "2024-06-08", "only the last two days are charted")
	assert.True(t, tuitest.ContainsInOrder(view, "2024-06-09", "1/4", "2024-06-10", "2/2"))
}
