package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/chainwatch/internal/api"
	"github.com/Veraticus/chainwatch/internal/apitest"
	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/poll"
	"github.com/Veraticus/chainwatch/internal/testutil"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveSnapshot(trades, anomalies int) *model.LiveSnapshot {
	return &model.LiveSnapshot{
		Trades: testutil.Trades(trades),
		Analysis: model.LiveAnalysis{
			TotalTransactions: trades,
			AnomaliesDetected: anomalies,
			AccuracyScore:     0.9,
			AnomalyIndices:    []int{1, 3},
		},
	}
}

func newTestLive(t *testing.T, fake *fakeAPI, extra ...Option) (LiveModel, *tuitest.Sender, *tuitest.ManualClock) {
	t.Helper()
	clock := tuitest.NewManualClock(testStart)
	sender := &tuitest.Sender{}
	m, err := NewLiveModel(context.Background(), sender, testOptions(fake, clock, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Close()
		m.Wait()
	})
	return m, sender, clock
}

func TestNewLiveModel_RequiresAPI(t *testing.T) {
	_, err := NewLiveModel(context.Background(), &tuitest.Sender{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestLiveModel_StartRendersSnapshot(t *testing.T) {
	fake := &fakeAPI{live: liveSnapshot(60, 5)}
	notifier := &fakeNotifier{}
	m, sender, _ := newTestLive(t, fake, WithNotifier(notifier))

	assert.Contains(t, tuitest.StripANSI(m.View()), "Stopped")

	m, cmd := update(t, m, tuitest.KeyPress("s"))
	require.NotNil(t, cmd)
	assert.True(t, m.Analyzing())
	assert.Equal(t, []string{msgAnalysisStarted}, noteTexts(m.notes))

	msg := waitForMsg[liveDataMsg](t, sender)
	require.NoError(t, msg.result.Err)
	m, _ = update(t, m, msg)

	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, "LIVE · Running")
	assert.Contains(t, view, "90.0%")
	assert.Contains(t, view, "55 normal / 5 anomalous")
	assert.Contains(t, view, "Page 1 of 2")
	assert.Contains(t, view, "Anomaly Detected! Found 5 suspicious transaction(s).")
	assert.Equal(t, 1, m.aggregator.Len())

	m.Close()
	m.Wait()
	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 5, sent[0].Count)
}

func TestLiveModel_StopHaltsPolling(t *testing.T) {
	fake := &fakeAPI{live: liveSnapshot(10, 0)}
	m, sender, clock := newTestLive(t, fake)

	m, _ = update(t, m, tuitest.KeyPress("s"))
	waitForMsg[liveDataMsg](t, sender)

	clock.Advance(poll.AnalysisInterval)
	require.Eventually(t, func() bool { return fake.liveCalls.Load() == 2 }, tickWait, tickPoll)

	m, _ = update(t, m, tuitest.KeyPress("x"))
	assert.False(t, m.Analyzing())
	assert.Equal(t, msgAnalysisStopped, noteTexts(m.notes)[0])

	// stopping twice is a no-op
	m, cmd := update(t, m, tuitest.KeyPress("x"))
	assert.Nil(t, cmd)
	assert.Len(t, m.notes.Items(), 2)

	clock.Advance(3 * poll.AnalysisInterval)
	m.liveFetch.Wait()
	assert.Equal(t, int32(2), fake.liveCalls.Load())
}

func TestLiveModel_InitStartsMarketAndLiveness(t *testing.T) {
	fake := &fakeAPI{market: &model.MarketData{
		Ticker: &model.Ticker{
			LastPrice:          decimal.NewFromFloat(64250.5),
			PriceChangePercent: decimal.NewFromFloat(2.5),
			Volume:             decimal.NewFromInt(1200),
		},
	}}
	m, sender, clock := newTestLive(t, fake)

	m.Init()()
	msg := waitForMsg[marketDataMsg](t, sender)
	m, _ = update(t, m, msg)
	assert.Contains(t, tuitest.StripANSI(m.View()), "$64,250.50")
	assert.Equal(t, int32(0), fake.liveCalls.Load(), "analysis waits for the start key")

	before := len(msgsOf[livenessMsg](sender))
	clock.Advance(poll.LivenessInterval)
	assert.Len(t, msgsOf[livenessMsg](sender), before+1)

	m, _ = update(t, m, livenessMsg{at: clock.Now()})
	assert.Equal(t, 1, m.pulse)
}

func TestLiveModel_AutoStart(t *testing.T) {
	fake := &fakeAPI{live: liveSnapshot(3, 0)}
	m, sender, _ := newTestLive(t, fake, WithAutoStart(true))

	m.Init()()
	waitForMsg[liveDataMsg](t, sender)
	assert.True(t, m.Analyzing())
}

func TestLiveModel_FailuresKeepLastSnapshot(t *testing.T) {
	m, _, _ := newTestLive(t, &fakeAPI{})
	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(5, 0), Seq: 1}})

	tests := []struct {
		err  error
		want string
	}{
		{err: &api.APIError{Status: 400, Message: "Model not loaded"}, want: "Analysis error: Model not loaded"},
		{err: &api.APIError{Status: 500, Message: "Binance API timeout"}, want: "Analysis error: Binance API timeout"},
		{err: &api.APIError{Status: 503}, want: msgAnalysisNetwork},
		{err: errNetwork, want: msgAnalysisNetwork},
	}
	for _, tt := range tests {
		m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Err: tt.err, Seq: 2}})
		assert.Equal(t, tt.want, noteTexts(m.notes)[0])
	}

	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, "90.0%", "summary keeps the last good analysis")
	assert.Contains(t, view, "Showing 1-5 of 5")
}

func TestLiveModel_EmailWarningLeavesStateAlone(t *testing.T) {
	m, _, _ := newTestLive(t, &fakeAPI{})
	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(5, 2)}})

	m, cmd := update(t, m, warningMsg{err: errNetwork})
	require.NotNil(t, cmd)
	assert.Equal(t, msgEmailFailed, noteTexts(m.notes)[0])
	assert.Equal(t, 1, m.aggregator.Len())
}

func TestLiveModel_AlertsAndEmailToggle(t *testing.T) {
	m, _, _ := newTestLive(t, &fakeAPI{}, WithEmailAlerts(false))
	assert.Contains(t, tuitest.StripANSI(m.View()), "No alerts")

	for range 2 {
		m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(5, 2)}})
	}
	assert.Equal(t, 2, m.aggregator.Len())

	m, _ = update(t, m, tuitest.KeyPress("d"))
	assert.Equal(t, 1, m.aggregator.Len())
	m, _ = update(t, m, tuitest.KeyPress("d"))
	assert.True(t, m.aggregator.IsEmpty())
	assert.Contains(t, tuitest.StripANSI(m.View()), "No alerts")

	assert.Contains(t, tuitest.StripANSI(m.View()), "email alerts: off")
	m, _ = update(t, m, tuitest.KeyPress("e"))
	assert.True(t, m.aggregator.Notifications())
	assert.Equal(t, "Email notifications enabled", noteTexts(m.notes)[0])
	assert.Contains(t, tuitest.StripANSI(m.View()), "email alerts: on")
}

func TestLiveModel_EmailToggleLeavesRelayOn(t *testing.T) {
	email := &fakeNotifier{}
	discord := &fakeNotifier{}
	m, _, _ := newTestLive(t, &fakeAPI{},
		WithNotifier(email), WithRelay(discord), WithEmailAlerts(false))

	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(5, 2)}})
	m.aggregator.Wait()
	assert.Empty(t, email.Sent(), "email is off")
	assert.Len(t, discord.Sent(), 1)

	m, _ = update(t, m, tuitest.KeyPress("e"))
	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(5, 2)}})
	m.aggregator.Wait()
	assert.Len(t, email.Sent(), 1)
	assert.Len(t, discord.Sent(), 2)

	m, _ = update(t, m, tuitest.KeyPress("e"))
	assert.Contains(t, tuitest.StripANSI(m.View()), "email alerts: off")
	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(5, 2)}})
	m.aggregator.Wait()
	assert.Len(t, email.Sent(), 1)
	assert.Len(t, discord.Sent(), 3)
}

func TestLiveModel_PageKeys(t *testing.T) {
	m, _, _ := newTestLive(t, &fakeAPI{}, WithPageSize(10))
	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(25, 0)}})

	m, _ = update(t, m, tuitest.KeyRight())
	assert.Equal(t, 2, m.trades.Page().Page)
	m, _ = update(t, m, tuitest.KeyPress("l"))
	m, _ = update(t, m, tuitest.KeyRight())
	assert.Equal(t, 3, m.trades.Page().Page)
	m, _ = update(t, m, tuitest.KeyLeft())
	assert.Equal(t, 2, m.trades.Page().Page)

	// a new batch returns to the first page
	m, _ = update(t, m, liveDataMsg{result: poll.Result[*model.LiveSnapshot]{Value: liveSnapshot(25, 0)}})
	assert.Equal(t, 1, m.trades.Page().Page)
}

func TestLiveModel_Quit(t *testing.T) {
	fake := &fakeAPI{live: liveSnapshot(1, 0)}
	m, sender, _ := newTestLive(t, fake)
	m, _ = update(t, m, tuitest.KeyPress("s"))
	waitForMsg[liveDataMsg](t, sender)

	m, cmd := update(t, m, tuitest.KeyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.Analyzing())
	assert.Empty(t, m.View())
}

func TestDescribeFailure(t *testing.T) {
	assert.Equal(t, "x: bad input", describeFailure(&api.APIError{Status: 200, Message: "bad input"}, "x: ", "net"))
	assert.Equal(t, "x: upstream down", describeFailure(&api.APIError{Status: 502, Message: "upstream down"}, "x: ", "net"))
	assert.Equal(t, "net", describeFailure(&api.APIError{Status: 502}, "x: ", "net"))
	assert.Equal(t, "x: Not Found", describeFailure(&api.APIError{Status: 404}, "x: ", "net"))
	assert.Equal(t, "x: request failed", describeFailure(&api.APIError{Status: 200}, "x: ", "net"))
	assert.Equal(t, "net", describeFailure(context.DeadlineExceeded, "x: ", "net"))
}

func TestDescribeFailure_ServerErrorBodyFromService(t *testing.T) {
	fixture := apitest.NewServer(apitest.Options{Seed: 7})
	fixture.Fail(http.MethodGet, api.PathLiveData, http.StatusInternalServerError, "Binance API timeout")
	srv := httptest.NewServer(fixture)
	t.Cleanup(srv.Close)

	client, err := api.New(api.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.LiveData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable, "server errors stay retryable")
	assert.Equal(t, "Analysis error: Binance API timeout",
		describeFailure(err, analysisErrorPrefix, msgAnalysisNetwork))
}
