package tui

import (
	"sync"

	"github.com/Veraticus/chainwatch/internal/playback"
	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages from background goroutines into the event loop.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSender forwards to a tea.Program once it is attached. Messages sent
// before Attach are dropped.
type ProgramSender struct {
	program *tea.Program
	mu      sync.RWMutex
}

// Attach sets the receiving program.
func (s *ProgramSender) Attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

// Send implements Sender.
func (s *ProgramSender) Send(msg tea.Msg) {
	s.mu.RLock()
	p := s.program
	s.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// surface turns playback output into messages for the event loop.
type surface struct {
	sender Sender
}

var _ playback.Surface = surface{}

func (s surface) Clear() {
	s.sender.Send(playbackClearMsg{})
}

func (s surface) Render(step playback.Step) {
	s.sender.Send(playbackStepMsg{step: step})
}
