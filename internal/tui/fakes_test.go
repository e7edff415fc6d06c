package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/service"
	"github.com/Veraticus/chainwatch/internal/tui/components"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

var errNetwork = errors.New("dial tcp: connection refused")

var testStart = time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)

// fakeAPI serves canned responses and counts calls.
type fakeAPI struct {
	live       *model.LiveSnapshot
	market     *model.MarketData
	stats      *model.DashboardStats
	chart      model.ActivityChart
	simulation *model.SimulationResult
	history    *model.SimulationHistory

	liveErr     error
	simulateErr error
	clearErr    error

	liveCalls          atomic.Int32
	marketCalls        atomic.Int32
	statsCalls         atomic.Int32
	chartCalls         atomic.Int32
	clearAnalysesCalls atomic.Int32
	clearLogsCalls     atomic.Int32
	clearHistoryCalls  atomic.Int32
}

var _ service.AnalysisAPI = (*fakeAPI)(nil)

func (f *fakeAPI) LiveData(context.Context) (*model.LiveSnapshot, error) {
	f.liveCalls.Add(1)
	return f.live, f.liveErr
}

func (f *fakeAPI) MarketData(context.Context) (*model.MarketData, error) {
	f.marketCalls.Add(1)
	return f.market, nil
}

func (f *fakeAPI) SendAnomalyEmail(context.Context, int, string) error {
	return nil
}

func (f *fakeAPI) DashboardStats(context.Context) (*model.DashboardStats, error) {
	f.statsCalls.Add(1)
	return f.stats, nil
}

func (f *fakeAPI) AnalysisActivity(context.Context) (model.ActivityChart, error) {
	f.chartCalls.Add(1)
	return f.chart, nil
}

func (f *fakeAPI) MarkAlertRead(context.Context, string) error {
	return nil
}

func (f *fakeAPI) ClearAnalyses(context.Context) error {
	f.clearAnalysesCalls.Add(1)
	return f.clearErr
}

func (f *fakeAPI) ClearActivityLogs(context.Context) error {
	f.clearLogsCalls.Add(1)
	return f.clearErr
}

func (f *fakeAPI) SimulateTestnet(context.Context, model.SimulationConfig) (*model.SimulationResult, error) {
	return f.simulation, f.simulateErr
}

func (f *fakeAPI) TestnetHistory(context.Context) (*model.SimulationHistory, error) {
	return f.history, nil
}

func (f *fakeAPI) ClearTestnetHistory(context.Context) error {
	f.clearHistoryCalls.Add(1)
	return f.clearErr
}

func (f *fakeAPI) Upload(context.Context, string, service.ProgressFunc) (*model.UploadResult, error) {
	return nil, errors.New("not implemented")
}

// fakeNotifier records delivered alerts.
type fakeNotifier struct {
	err    error
	alerts []model.Alert
	mu     sync.Mutex
}

func (n *fakeNotifier) Notify(_ context.Context, alert model.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *fakeNotifier) Sent() []model.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Alert(nil), n.alerts...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(api service.AnalysisAPI, clock *tuitest.ManualClock, extra ...Option) []Option {
	return append([]Option{
		WithAPI(api),
		WithClock(clock),
		WithLogger(discardLogger()),
		WithSize(120, 40),
	}, extra...)
}

// waitForMsg blocks until the sender has seen a message of type T.
func waitForMsg[T tea.Msg](t *testing.T, s *tuitest.Sender) T {
	t.Helper()
	var found T
	require.Eventually(t, func() bool {
		for _, msg := range s.Messages() {
			if v, ok := msg.(T); ok {
				found = v
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return found
}

// msgsOf returns every sent message of type T, in order.
func msgsOf[T tea.Msg](s *tuitest.Sender) []T {
	var out []T
	for _, msg := range s.Messages() {
		if v, ok := msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func noteTexts(notes components.NotificationsModel) []string {
	items := notes.Items()
	texts := make([]string, len(items))
	for i, n := range items {
		texts[i] = n.Text
	}
	return texts
}

// update feeds msg to m and keeps the concrete model type.
func update[M tea.Model](t *testing.T, m M, msg tea.Msg) (M, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(M)
	require.True(t, ok, "unexpected model type %T", next)
	return out, cmd
}

const (
	tickWait = 2 * time.Second
	tickPoll = 5 * time.Millisecond
)
