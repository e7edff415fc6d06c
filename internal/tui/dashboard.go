package tui

import (
	"context"
	"fmt"

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

// Clear targets.
const (
	targetAnalyses = "analyses"
	targetLogs     = "logs"
)

// Dashboard screen notifications.
const (
	msgAnalysesCleared     = "Analyses cleared"
	msgLogsCleared         = "Activity logs cleared"
	msgClearAnalysesFailed = "Failed to clear analyses"
	msgClearLogsFailed     = "Failed to clear activity logs"
)

// DashboardModel shows account-level statistics and recent activity.
type DashboardModel struct {
	theme      themes.Theme
	ctx        context.Context
	cancel     context.CancelFunc
	stats      *poll.Scheduler
	activity   *poll.Scheduler
	liveness   *poll.Scheduler
	statsFetch *poll.Fetcher[*model.DashboardStats]
	chartFetch *poll.Fetcher[model.ActivityChart]
	keymap     KeyMap
	help       help.Model
	config     Config
	panel      components.ActivityModel
	notes      components.NotificationsModel
	pending    string
	pulse      int
	width      int
	height     int
	quitting   bool
}

// NewDashboardModel wires the stats, activity and liveness pollers.
func NewDashboardModel(ctx context.Context, sender Sender, opts ...Option) (DashboardModel, error) {
	cfg := buildConfig(opts)
	if cfg.API == nil {
		return DashboardModel{}, fmt.Errorf("dashboard: %w: api client is required", common.ErrMissingConfig)
	}

	ctx, cancel := context.WithCancel(ctx)
	pollOpts := []poll.Option{poll.WithClock(cfg.Clock), poll.WithLogger(cfg.Logger)}

	m := DashboardModel{
		theme:  cfg.Theme,
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
		keymap: DefaultKeyMap(),
		help:   help.New(),
		panel:  components.NewActivityModel(cfg.Theme, 7),
		notes:  components.NewNotificationsModel(cfg.Theme, cfg.NotificationTTL),
		width:  cfg.Width,
		height: cfg.Height,
	}
	m.help.ShowAll = cfg.ShowHelp
	m.panel.Resize(cfg.Width, cfg.Height)

	m.statsFetch = poll.NewFetcher[*model.DashboardStats](ctx, "dashboard-stats", cfg.API.DashboardStats,
		func(r poll.Result[*model.DashboardStats]) { sender.Send(statsMsg{result: r}) },
		pollOpts...)
	m.chartFetch = poll.NewFetcher[model.ActivityChart](ctx, "analysis-activity", cfg.API.AnalysisActivity,
		func(r poll.Result[model.ActivityChart]) { sender.Send(activityMsg{result: r}) },
		pollOpts...)

	m.stats = poll.New("dashboard-stats", cfg.Intervals.Stats, m.statsFetch.Tick, pollOpts...)
	m.activity = poll.New("analysis-activity", cfg.Intervals.Activity, m.chartFetch.Tick, pollOpts...)
	m.liveness = poll.New("liveness", cfg.Intervals.Liveness, func() {
		sender.Send(livenessMsg{at: cfg.Clock.Now()})
	}, pollOpts...)

	return m, nil
}

// Init starts every poller.
func (m DashboardModel) Init() tea.Cmd {
	return func() tea.Msg {
		poll.Group{m.stats, m.activity, m.liveness}.StartAll()
		return nil
	}
}

// Update handles messages and updates the model.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.panel.Resize(msg.Width, msg.Height)

	case statsMsg:
		if msg.result.Err == nil {
			m.panel.SetStats(msg.result.Value)
		}

	case activityMsg:
		if msg.result.Err == nil {
			m.panel.SetChart(msg.result.Value)
		}

	case livenessMsg:
		m.pulse++

	case clearedMsg:
		cmds = append(cmds, m.handleCleared(msg))

	case components.NotificationExpiredMsg:
		m.notes, _ = m.notes.Update(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != "" {
		target := m.pending
		m.pending = ""
		if key.Matches(msg, m.keymap.Confirm) {
			return m, m.clear(target)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.ClearScreen):
		return m, tea.ClearScreen

	case key.Matches(msg, m.keymap.Refresh):
		m.refresh()

	case key.Matches(msg, m.keymap.ClearAnalyses):
		m.pending = targetAnalyses

	case key.Matches(msg, m.keymap.ClearLogs):
		m.pending = targetLogs
	}
	return m, nil
}

func (m *DashboardModel) handleCleared(msg clearedMsg) tea.Cmd {
	var text string
	level := components.LevelSuccess
	switch {
	case msg.err != nil && msg.target == targetAnalyses:
		text, level = msgClearAnalysesFailed, components.LevelError
	case msg.err != nil:
		text, level = msgClearLogsFailed, components.LevelError
	case msg.target == targetAnalyses:
		text = msgAnalysesCleared
	default:
		text = msgLogsCleared
	}
	if msg.err == nil {
		m.refresh()
	}

	var cmd tea.Cmd
	m.notes, cmd = m.notes.Push(level, text)
	return cmd
}

func (m DashboardModel) refresh() {
	m.statsFetch.Tick()
	m.chartFetch.Tick()
}

func (m DashboardModel) clear(target string) tea.Cmd {
	client, ctx := m.config.API, m.ctx
	return func() tea.Msg {
		var err error
		if target == targetAnalyses {
			err = client.ClearAnalyses(ctx)
		} else {
			err = client.ClearActivityLogs(ctx)
		}
		return clearedMsg{target: target, err: err}
	}
}

// Close stops every poller and abandons requests in flight without blocking.
func (m DashboardModel) Close() {
	poll.Group{m.stats, m.activity, m.liveness}.StopAll()
	m.cancel()
}

// Wait blocks until fetches in flight finish.
func (m DashboardModel) Wait() {
	m.statsFetch.Wait()
	m.chartFetch.Wait()
}

// Pending returns the clear target awaiting confirmation, if any.
func (m DashboardModel) Pending() string {
	return m.pending
}

// View renders the UI.
func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}

	dot := m.theme.StatusSuccess.Render("●")
	if m.pulse%2 == 1 {
		dot = m.theme.StatusSuccess.Faint(true).Render("●")
	}
	header := m.theme.Title.Render("Dashboard") + "  " + dot

	sections := []string{header}
	if notes := m.notes.View(); notes != "" {
		sections = append(sections, notes)
	}
	sections = append(sections, m.panel.View())
	if m.pending != "" {
		what := "all analyses"
		if m.pending == targetLogs {
			what = "all activity logs"
		}
		sections = append(sections, m.theme.StatusWarning.Render(fmt.Sprintf("Clear %s? (y/n)", what)))
	}
	sections = append(sections, m.help.View(dashboardHelp{m.keymap}))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
