package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/chainwatch/internal/alerts"
	"github.com/Veraticus/chainwatch/internal/api"
	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/poll"
	"github.com/Veraticus/chainwatch/internal/tui/components"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Live screen notifications.
const (
	msgAnalysisStarted  = "Live analysis started"
	msgAnalysisStopped  = "Live analysis stopped"
	msgAnalysisNetwork  = "Error connecting to analysis service"
	msgEmailFailed      = "Failed to send email notification."
	analysisErrorPrefix = "Analysis error: "
)

// LiveModel is the live BTC analysis screen.
type LiveModel struct {
	theme       themes.Theme
	ctx         context.Context
	lastUpdate  time.Time
	cancel      context.CancelFunc
	analysis    *poll.Scheduler
	market      *poll.Scheduler
	liveness    *poll.Scheduler
	liveFetch   *poll.Fetcher[*model.LiveSnapshot]
	marketFetch *poll.Fetcher[*model.MarketData]
	aggregator  *alerts.Aggregator
	keymap      KeyMap
	help        help.Model
	config      Config
	trades      components.TradeTableModel
	summary     components.SummaryModel
	alertList   components.AlertListModel
	marketView  components.MarketModel
	notes       components.NotificationsModel
	pulse       int
	width       int
	height      int
	quitting    bool
}

// NewLiveModel wires the analysis, market-data and liveness pollers. Results
// reach the model through sender.
func NewLiveModel(ctx context.Context, sender Sender, opts ...Option) (LiveModel, error) {
	cfg := buildConfig(opts)
	if cfg.API == nil {
		return LiveModel{}, fmt.Errorf("live analysis: %w: api client is required", common.ErrMissingConfig)
	}

	ctx, cancel := context.WithCancel(ctx)
	pollOpts := []poll.Option{poll.WithClock(cfg.Clock), poll.WithLogger(cfg.Logger)}

	m := LiveModel{
		theme:      cfg.Theme,
		ctx:        ctx,
		cancel:     cancel,
		config:     cfg,
		keymap:     DefaultKeyMap(),
		help:       help.New(),
		trades:     components.NewTradeTableModel(cfg.Theme, cfg.PageSize),
		summary:    components.NewSummaryModel(cfg.Theme),
		alertList:  components.NewAlertListModel(cfg.Theme),
		marketView: components.NewMarketModel(cfg.Theme),
		notes:      components.NewNotificationsModel(cfg.Theme, cfg.NotificationTTL),
		width:      cfg.Width,
		height:     cfg.Height,
	}
	m.help.ShowAll = cfg.ShowHelp

	m.liveFetch = poll.NewFetcher[*model.LiveSnapshot](ctx, "live-data", cfg.API.LiveData,
		func(r poll.Result[*model.LiveSnapshot]) { sender.Send(liveDataMsg{result: r}) },
		pollOpts...)
	m.marketFetch = poll.NewFetcher[*model.MarketData](ctx, "market-data", cfg.API.MarketData,
		func(r poll.Result[*model.MarketData]) { sender.Send(marketDataMsg{result: r}) },
		pollOpts...)

	m.analysis = poll.New("analysis", cfg.Intervals.Analysis, m.liveFetch.Tick, pollOpts...)
	m.market = poll.New("market-data", cfg.Intervals.Market, m.marketFetch.Tick, pollOpts...)
	m.liveness = poll.New("liveness", cfg.Intervals.Liveness, func() {
		sender.Send(livenessMsg{at: cfg.Clock.Now()})
	}, pollOpts...)

	aggOpts := []alerts.Option{
		alerts.WithNotifications(cfg.EmailAlerts),
		alerts.WithLogger(cfg.Logger),
		alerts.WithClock(cfg.Clock.Now),
		alerts.OnWarning(func(err error) { sender.Send(warningMsg{err: err}) }),
	}
	if cfg.Notifier != nil {
		aggOpts = append(aggOpts, alerts.WithNotifier(cfg.Notifier))
	}
	if len(cfg.Relays) > 0 {
		aggOpts = append(aggOpts, alerts.WithRelay(cfg.Relays...))
	}
	if cfg.Storage != nil {
		aggOpts = append(aggOpts, alerts.WithRecorder(cfg.Storage))
	}
	m.aggregator = alerts.NewAggregator(aggOpts...)

	m.resize()
	return m, nil
}

// Init starts the market-data and liveness pollers. Analysis waits for the
// start key unless auto-start is configured.
func (m LiveModel) Init() tea.Cmd {
	autoStart := m.config.AutoStart
	return func() tea.Msg {
		m.market.Start()
		m.liveness.Start()
		if autoStart {
			m.analysis.Start()
		}
		return nil
	}
}

// Update handles messages and updates the model.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case liveDataMsg:
		cmds = append(cmds, m.handleLiveData(msg.result))

	case marketDataMsg:
		// failures are logged by the fetcher; the panel keeps its last data
		if msg.result.Err == nil {
			m.marketView.SetData(msg.result.Value)
		}

	case livenessMsg:
		m.pulse++

	case warningMsg:
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Push(components.LevelError, msgEmailFailed)
		cmds = append(cmds, cmd)

	case components.NotificationExpiredMsg:
		m.notes, _ = m.notes.Update(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m LiveModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.ClearScreen):
		return m, tea.ClearScreen

	case key.Matches(msg, m.keymap.Start):
		if m.analysis.Start() {
			m.notes, cmd = m.notes.Push(components.LevelSuccess, msgAnalysisStarted)
		}

	case key.Matches(msg, m.keymap.Stop):
		if m.analysis.Stop() {
			m.notes, cmd = m.notes.Push(components.LevelInfo, msgAnalysisStopped)
		}

	case key.Matches(msg, m.keymap.PrevPage):
		m.trades.PreviousPage()

	case key.Matches(msg, m.keymap.NextPage):
		m.trades.NextPage()

	case key.Matches(msg, m.keymap.Dismiss):
		if list := m.aggregator.List(); len(list) > 0 {
			m.aggregator.Remove(list[0].ID)
			m.alertList.SetAlerts(m.aggregator.List())
		}

	case key.Matches(msg, m.keymap.ToggleEmail):
		enabled := !m.aggregator.Notifications()
		m.aggregator.SetNotifications(enabled)
		text := "Email notifications disabled"
		if enabled {
			text = "Email notifications enabled"
		}
		m.notes, cmd = m.notes.Push(components.LevelInfo, text)

	case key.Matches(msg, m.keymap.Refresh):
		m.marketFetch.Tick()
	}

	return m, cmd
}

func (m *LiveModel) handleLiveData(r poll.Result[*model.LiveSnapshot]) tea.Cmd {
	if r.Err != nil {
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Push(components.LevelError, describeFailure(r.Err, analysisErrorPrefix, msgAnalysisNetwork))
		return cmd
	}

	snap := r.Value
	m.lastUpdate = m.config.Clock.Now()
	m.summary.SetLive(snap.Analysis, r.Latency, m.lastUpdate)

	if n := snap.Analysis.AnomaliesDetected; n > 0 {
		m.aggregator.Add(m.ctx, n)
		m.alertList.SetAlerts(m.aggregator.List())
	}
	if snap.Trades != nil {
		m.trades.Load(snap.Trades, snap.Analysis)
	}
	return nil
}

// describeFailure renders any failure carrying a server message, whatever
// its status, as an application error. Transport failures and bare server
// errors are a connection problem.
func describeFailure(err error, appPrefix, network string) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return network
	}
	if apiErr.Message != "" {
		return appPrefix + apiErr.Message
	}
	if errors.Is(err, common.ErrUnavailable) {
		return network
	}
	if text := http.StatusText(apiErr.Status); text != "" && apiErr.Status != http.StatusOK {
		return appPrefix + text
	}
	return appPrefix + "request failed"
}

// Close stops every poller and abandons requests in flight. It does not
// block, so it is safe to call from Update.
func (m LiveModel) Close() {
	m.analysis.Stop()
	m.market.Stop()
	m.liveness.Stop()
	m.cancel()
}

// Wait blocks until fetches and alert dispatches finish. Call it after the
// program has exited.
func (m LiveModel) Wait() {
	m.liveFetch.Wait()
	m.marketFetch.Wait()
	m.aggregator.Wait()
}

// Analyzing reports whether the analysis poll is running.
func (m LiveModel) Analyzing() bool {
	return m.analysis.IsRunning()
}

func (m *LiveModel) resize() {
	left := m.width * 2 / 3
	right := m.width - left - 3
	m.summary.Resize(m.width)
	m.trades.Resize(left, max(m.height-14, 8))
	m.alertList.Resize(right, 8)
	m.marketView.Resize(right, 4)
}

// View renders the UI.
func (m LiveModel) View() string {
	if m.quitting {
		return ""
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Title.Render("Live BTC Analysis"),
		"  ",
		m.renderStatus(),
	)

	right := lipgloss.JoinVertical(lipgloss.Left,
		m.marketView.View(),
		"",
		m.alertList.View(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.trades.View(),
		m.theme.Normal.Render(" │ "),
		right,
	)
	if m.width < 100 {
		body = lipgloss.JoinVertical(lipgloss.Left, m.trades.View(), "", right)
	}

	sections := []string{header}
	if notes := m.notes.View(); notes != "" {
		sections = append(sections, notes)
	}
	sections = append(sections,
		m.summary.View(),
		body,
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m LiveModel) renderStatus() string {
	if !m.analysis.IsRunning() {
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Stopped")
	}
	dot := m.theme.StatusError.Render("●")
	if m.pulse%2 == 1 {
		dot = m.theme.StatusError.Faint(true).Render("●")
	}
	return dot + " " + m.theme.StatusSuccess.Render("LIVE · Running")
}

func (m LiveModel) renderFooter() string {
	email := "off"
	if m.aggregator.Notifications() {
		email = "on"
	}
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = fmt.Sprintf("%s ago", m.config.Clock.Now().Sub(m.lastUpdate).Truncate(time.Second))
	}
	status := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(
		fmt.Sprintf("email alerts: %s │ updated %s", email, updated))
	return lipgloss.JoinVertical(lipgloss.Left, status, m.help.View(liveHelp{m.keymap}))
}
