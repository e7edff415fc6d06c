package testing

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender records messages that background goroutines would send to a
// running program.
type Sender struct {
	msgs []tea.Msg
	mu   sync.Mutex
}

// Send implements the TUI sender contract.
func (s *Sender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

// Messages returns a copy of everything sent so far.
func (s *Sender) Messages() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

// Drain returns and forgets everything sent so far.
func (s *Sender) Drain() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.msgs
	s.msgs = nil
	return msgs
}

// WaitFor polls until at least n messages were sent or timeout elapses.
func (s *Sender) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		got := len(s.msgs)
		s.mu.Unlock()
		if got >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
