package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/tui/components"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Testnet screen notifications.
const (
	msgSimulationDone      = "Simulation completed successfully"
	msgSimulationStopped   = "Simulation playback stopped"
	msgHistoryCleared      = "Simulation history cleared"
	msgHistoryClearFailed  = "Failed to clear history"
	msgSummarySaveFailed   = "Failed to save simulation summary"
	simulationFailedPrefix = "Simulation failed: "
)

// TestnetState is the phase of the testnet screen.
type TestnetState int

// Testnet phases.
const (
	TestnetIdle TestnetState = iota
	TestnetSimulating
	TestnetPlaying
	TestnetDone
)

func (s TestnetState) String() string {
	switch s {
	case TestnetIdle:
		return "idle"
	case TestnetSimulating:
		return "simulating"
	case TestnetPlaying:
		return "playing"
	case TestnetDone:
		return "done"
	default:
		return "unknown"
	}
}

// TestnetModel runs a testnet simulation and narrates its demo batch.
type TestnetModel struct {
	theme      themes.Theme
	ctx        context.Context
	cancel     context.CancelFunc
	controller *playback.Controller
	result     *model.SimulationResult
	keymap     KeyMap
	help       help.Model
	spinner    spinner.Model
	config     Config
	summary    components.SummaryModel
	narration  components.NarrationModel
	history    components.HistoryModel
	notes      components.NotificationsModel
	report     playback.Report
	state      TestnetState
	width      int
	height     int
	quitting   bool
}

// NewTestnetModel creates the testnet screen. The simulation request is sent
// from Init.
func NewTestnetModel(ctx context.Context, sender Sender, opts ...Option) (TestnetModel, error) {
	cfg := buildConfig(opts)
	if cfg.API == nil {
		return TestnetModel{}, fmt.Errorf("testnet: %w: api client is required", common.ErrMissingConfig)
	}
	if err := cfg.Simulation.Validate(); err != nil {
		return TestnetModel{}, fmt.Errorf("testnet: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cfg.Theme.Primary)

	m := TestnetModel{
		theme:     cfg.Theme,
		ctx:       ctx,
		cancel:    cancel,
		config:    cfg,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		summary:   components.NewSummaryModel(cfg.Theme),
		narration: components.NewNarrationModel(cfg.Theme, cfg.Width, max(cfg.Height-22, 6)),
		history:   components.NewHistoryModel(cfg.Theme),
		notes:     components.NewNotificationsModel(cfg.Theme, cfg.NotificationTTL),
		state:     TestnetSimulating,
		width:     cfg.Width,
		height:    cfg.Height,
	}
	m.help.ShowAll = cfg.ShowHelp
	m.controller = playback.NewController(surface{sender: sender},
		playback.WithStepDelay(cfg.StepDelay),
		playback.WithLogger(cfg.Logger),
		playback.OnDone(func(r playback.Report) { sender.Send(playbackDoneMsg{report: r}) }),
	)
	return m, nil
}

// Init sends the simulation request and loads the run history.
func (m TestnetModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.simulate(), m.loadHistory())
}

// Update handles messages and updates the model.
func (m TestnetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.narration.Resize(msg.Width, max(msg.Height-22, 6))
		m.summary.Resize(msg.Width)
		m.history.Resize(msg.Width, 8)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case simulationMsg:
		cmds = append(cmds, m.handleSimulation(msg))

	case playbackClearMsg:
		m.narration.Clear()

	case playbackStepMsg:
		m.narration.Append(msg.step)

	case playbackDoneMsg:
		m.report = msg.report
		if msg.report.Outcome != playback.Superseded {
			m.state = TestnetDone
		}
		if msg.report.Outcome == playback.Cancelled {
			var cmd tea.Cmd
			m.notes, cmd = m.notes.Push(components.LevelInfo, msgSimulationStopped)
			cmds = append(cmds, cmd)
		}

	case historyMsg:
		// the history panel is informational; a failed load keeps the old runs
		if msg.err == nil {
			m.history.SetHistory(msg.history)
		}

	case historyClearedMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			m.notes, cmd = m.notes.Push(components.LevelError, msgHistoryClearFailed)
		} else {
			m.notes, cmd = m.notes.Push(components.LevelSuccess, msgHistoryCleared)
			cmds = append(cmds, m.loadHistory())
		}
		cmds = append(cmds, cmd)

	case summarySavedMsg:
		if msg.err != nil {
			var cmd tea.Cmd
			m.notes, cmd = m.notes.Push(components.LevelWarning, msgSummarySaveFailed)
			cmds = append(cmds, cmd)
		}

	case components.NotificationExpiredMsg:
		m.notes, _ = m.notes.Update(msg)

	default:
		var cmd tea.Cmd
		m.narration, cmd = m.narration.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m TestnetModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit):
		// first Ctrl+C stops a running playback, the second quits
		if m.controller.Running() && !m.controller.Cancelled() {
			m.controller.Cancel()
			return m, nil
		}
		m.quitting = true
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.ClearScreen):
		return m, tea.ClearScreen

	case key.Matches(msg, m.keymap.Cancel):
		m.controller.Cancel()

	case key.Matches(msg, m.keymap.Run):
		if m.state == TestnetSimulating {
			return m, nil
		}
		m.state = TestnetSimulating
		return m, tea.Batch(m.spinner.Tick, m.simulate())

	case key.Matches(msg, m.keymap.ClearHistory):
		return m, m.clearHistory()

	default:
		var cmd tea.Cmd
		m.narration, cmd = m.narration.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *TestnetModel) handleSimulation(msg simulationMsg) tea.Cmd {
	var cmd tea.Cmd
	if msg.err != nil {
		m.state = TestnetIdle
		m.notes, cmd = m.notes.Push(components.LevelError,
			describeFailure(msg.err, simulationFailedPrefix, "Simulation error: "+msg.err.Error()))
		return cmd
	}

	m.result = msg.result
	m.summary.SetSimulation(msg.result.Summary)
	m.notes, cmd = m.notes.Push(components.LevelSuccess, msgSimulationDone)

	cmds := []tea.Cmd{cmd, m.loadHistory(), m.saveSummary(msg.result.Summary)}
	if len(msg.result.Demo) > 0 {
		m.state = TestnetPlaying
		cmds = append(cmds, m.play(msg.result.Demo))
	} else {
		m.state = TestnetDone
	}
	return tea.Batch(cmds...)
}

// play starts narration off the event loop; the surface sends back into it.
func (m TestnetModel) play(batch model.Batch) tea.Cmd {
	return func() tea.Msg {
		m.controller.Play(m.ctx, batch)
		return nil
	}
}

func (m TestnetModel) simulate() tea.Cmd {
	client, ctx, sim := m.config.API, m.ctx, m.config.Simulation
	return func() tea.Msg {
		result, err := client.SimulateTestnet(ctx, sim)
		return simulationMsg{result: result, err: err}
	}
}

func (m TestnetModel) loadHistory() tea.Cmd {
	client, ctx := m.config.API, m.ctx
	return func() tea.Msg {
		h, err := client.TestnetHistory(ctx)
		return historyMsg{history: h, err: err}
	}
}

func (m TestnetModel) clearHistory() tea.Cmd {
	client, ctx := m.config.API, m.ctx
	return func() tea.Msg {
		return historyClearedMsg{err: client.ClearTestnetHistory(ctx)}
	}
}

func (m TestnetModel) saveSummary(s model.SimulationSummary) tea.Cmd {
	store, ctx := m.config.Storage, m.ctx
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return summarySavedMsg{err: store.SaveSimulationSummary(ctx, s)}
	}
}

// Close cancels playback and any request in flight without blocking.
func (m TestnetModel) Close() {
	m.controller.Cancel()
	m.cancel()
}

// Wait blocks until the playback chain has finished. Call it after the
// program has exited.
func (m TestnetModel) Wait() {
	m.controller.Wait()
}

// State returns the current phase.
func (m TestnetModel) State() TestnetState {
	return m.state
}

// Result returns the last simulation result, or nil.
func (m TestnetModel) Result() *model.SimulationResult {
	return m.result
}

// View renders the UI.
func (m TestnetModel) View() string {
	if m.quitting {
		return ""
	}

	header := m.theme.Title.Render("Testnet Simulation")
	switch m.state {
	case TestnetSimulating:
		header += "  " + m.spinner.View() + " Simulating..."
	case TestnetPlaying:
		header += "  " + m.theme.StatusInfo.Render("▶ Playing")
	}

	sections := []string{header}
	if notes := m.notes.View(); notes != "" {
		sections = append(sections, notes)
	}
	if m.summary.Loaded() {
		sections = append(sections, m.summary.View())
	}
	sections = append(sections,
		m.theme.Subtitle.Render("Transaction Flow"),
		m.narration.View(),
		m.history.View(),
		m.help.View(testnetHelp{m.keymap}),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
