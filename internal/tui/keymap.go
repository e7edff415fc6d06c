package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Live analysis
	Start       key.Binding
	Stop        key.Binding
	PrevPage    key.Binding
	NextPage    key.Binding
	Dismiss     key.Binding
	ToggleEmail key.Binding
	Refresh     key.Binding

	// Testnet
	Run          key.Binding
	Cancel       key.Binding
	ClearHistory key.Binding

	// Dashboard
	ClearAnalyses key.Binding
	ClearLogs     key.Binding
	Confirm       key.Binding

	// Application
	Quit        key.Binding
	ForceQuit   key.Binding
	Help        key.Binding
	ClearScreen key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start analysis"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop analysis"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "pgup"),
			key.WithHelp("←/h", "previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss alert"),
		),
		ToggleEmail: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle email alerts"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),

		Run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run simulation"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop playback"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear history"),
		),

		ClearAnalyses: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear analyses"),
		),
		ClearLogs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "clear activity logs"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),

		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/Esc", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ClearScreen: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("Ctrl+L", "clear screen"),
		),
	}
}

// liveHelp adapts the key map for the live analysis screen.
type liveHelp struct{ KeyMap }

func (k liveHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Help, k.Quit}
}

func (k liveHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Refresh},
		{k.PrevPage, k.NextPage},
		{k.Dismiss, k.ToggleEmail},
		{k.Help, k.ClearScreen, k.Quit},
	}
}

type testnetHelp struct{ KeyMap }

func (k testnetHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Cancel, k.Help, k.Quit}
}

func (k testnetHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Cancel, k.ClearHistory},
		{k.Help, k.ClearScreen, k.Quit},
	}
}

type dashboardHelp struct{ KeyMap }

func (k dashboardHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Help, k.Quit}
}

func (k dashboardHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh, k.ClearAnalyses, k.ClearLogs},
		{k.Help, k.ClearScreen, k.Quit},
	}
}
