package components

import (
	"fmt"
	"strings"

	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// NarrationModel is the scrolling surface playback steps are appended to.
type NarrationModel struct {
	theme    themes.Theme
	viewport viewport.Model
	steps    []playback.Step
	width    int
	height   int
}

// NewNarrationModel creates an empty narration pane.
func NewNarrationModel(theme themes.Theme, width, height int) NarrationModel {
	vp := viewport.New(width, height)
	return NarrationModel{
		theme:    theme,
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Clear removes every rendered step.
func (m *NarrationModel) Clear() {
	m.steps = nil
	m.viewport.SetContent("")
	m.viewport.GotoTop()
}

// Append renders step below the previous ones and scrolls to it.
func (m *NarrationModel) Append(step playback.Step) {
	m.steps = append(m.steps, step)
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

// Steps returns the rendered steps in order.
func (m NarrationModel) Steps() []playback.Step {
	return m.steps
}

// Update handles scrolling.
func (m NarrationModel) Update(msg tea.Msg) (NarrationModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// Resize sets the pane size.
func (m *NarrationModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.render())
}

// View renders the visible part of the narration.
func (m NarrationModel) View() string {
	if len(m.steps) == 0 {
		return m.theme.Placeholder.Render("Waiting for simulation...")
	}
	return m.viewport.View()
}

func (m NarrationModel) render() string {
	lines := make([]string, 0, len(m.steps)*2)
	for _, step := range m.steps {
		lines = append(lines, m.renderStep(step))
		if step.Stage == playback.StageDecision {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

func (m NarrationModel) renderStep(step playback.Step) string {
	index := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf("#%-3d", step.Index+1))

	if step.Stage == playback.StageDecision {
		if step.Tx.IsAnomaly {
			return index + " " + m.theme.AnomalyBadge.Render("⚠ "+step.Text)
		}
		return index + " " + m.theme.NormalBadge.Render("✓ "+step.Text)
	}

	badge := lipgloss.NewStyle().
		Foreground(m.stageColor(step.Stage)).
		Bold(true).
		Width(20).
		Render(step.Stage.String())
	return index + " " + badge + m.theme.Normal.Render(step.Text)
}

func (m NarrationModel) stageColor(stage playback.Stage) lipgloss.Color {
	switch stage {
	case playback.StageProcessing:
		return m.theme.Primary
	case playback.StageReceived:
		return m.theme.Success
	case playback.StageHistoryDisclosure:
		return m.theme.Warning
	default:
		return m.theme.Info
	}
}
