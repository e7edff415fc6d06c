package testing

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyPress creates a rune key message, e.g. KeyPress("s") to start polling.
func KeyPress(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// KeyLeft moves the trade table back a page.
func KeyLeft() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyLeft} }

// KeyRight moves the trade table forward a page.
func KeyRight() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRight} }

// KeyEsc creates an escape key message.
func KeyEsc() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEsc} }

// KeyCtrlC creates a Ctrl+C key message.
func KeyCtrlC() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyCtrlC} }
