package components

import (
	"time"

	"github.com/Veraticus/chainwatch/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultNotificationTTL is how long a notification stays on screen.
const DefaultNotificationTTL = 5 * time.Second

// Level is the severity of a notification.
type Level int

// Notification levels.
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notification is a transient status message.
type Notification struct {
	Text  string
	ID    int
	Level Level
}

// NotificationsModel shows auto-dismissing notifications, newest first.
type NotificationsModel struct {
	theme  themes.Theme
	items  []Notification
	ttl    time.Duration
	nextID int
	width  int
}

// NewNotificationsModel creates an empty notification stack.
func NewNotificationsModel(theme themes.Theme, ttl time.Duration) NotificationsModel {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return NotificationsModel{theme: theme, ttl: ttl}
}

// Push adds a notification and returns the command that expires it.
func (m NotificationsModel) Push(level Level, text string) (NotificationsModel, tea.Cmd) {
	m.nextID++
	id := m.nextID
	m.items = append([]Notification{{ID: id, Level: level, Text: text}}, m.items...)

	return m, tea.Tick(m.ttl, func(time.Time) tea.Msg {
		return NotificationExpiredMsg{ID: id}
	})
}

// Update handles messages.
func (m NotificationsModel) Update(msg tea.Msg) (NotificationsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case NotificationExpiredMsg:
		for i, n := range m.items {
			if n.ID == msg.ID {
				m.items = append(m.items[:i:i], m.items[i+1:]...)
				break
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// Items returns the visible notifications, newest first.
func (m NotificationsModel) Items() []Notification {
	return m.items
}

// View renders the notifications, one per line.
func (m NotificationsModel) View() string {
	if len(m.items) == 0 {
		return ""
	}

	lines := make([]string, 0, len(m.items))
	for _, n := range m.items {
		lines = append(lines, m.style(n.Level).Render(m.icon(n.Level)+" "+n.Text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m NotificationsModel) style(level Level) lipgloss.Style {
	switch level {
	case LevelSuccess:
		return m.theme.StatusSuccess
	case LevelWarning:
		return m.theme.StatusWarning
	case LevelError:
		return m.theme.StatusError
	default:
		return m.theme.StatusInfo
	}
}

func (m NotificationsModel) icon(level Level) string {
	switch level {
	case LevelSuccess:
		return "✓"
	case LevelWarning:
		return "!"
	case LevelError:
		return "✗"
	default:
		return "i"
	}
}
