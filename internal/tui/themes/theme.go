package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	// Verdict styles
	AnomalyBadge lipgloss.Style
	NormalBadge  lipgloss.Style

	Placeholder   lipgloss.Style
	Disabled      lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style

	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Foreground lipgloss.Color
	Info       lipgloss.Color
	Error      lipgloss.Color
	Warning    lipgloss.Color
	Success    lipgloss.Color
}

// Palette is the set of colors a Theme is derived from.
type Palette struct {
	Primary    lipgloss.Color
	Foreground lipgloss.Color
	Subtle     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Info       lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	// BadgeText is drawn on top of the verdict badges.
	BadgeText lipgloss.Color
}

// New derives every style from p.
func New(p Palette) Theme {
	status := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	badge := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Background(c).Foreground(p.BadgeText).Bold(true).Padding(0, 1)
	}

	return Theme{
		Primary:    p.Primary,
		Muted:      p.Muted,
		Border:     p.Border,
		Foreground: p.Foreground,
		Info:       p.Info,
		Error:      p.Error,
		Warning:    p.Warning,
		Success:    p.Success,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Foreground).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(p.Subtle).MarginBottom(1),
		Normal:   lipgloss.NewStyle().Foreground(p.Foreground),
		Bold:     lipgloss.NewStyle().Bold(true).Foreground(p.Foreground),

		StatusSuccess: status(p.Success),
		StatusWarning: status(p.Warning),
		StatusError:   status(p.Error),
		StatusInfo:    status(p.Info),

		AnomalyBadge: badge(p.Error),
		NormalBadge:  badge(p.Success),

		Placeholder: lipgloss.NewStyle().Foreground(p.Muted).Italic(true).Padding(1, 2),
		Disabled:    lipgloss.NewStyle().Foreground(p.Border),
	}
}

// Default is the dark dashboard theme.
var Default = New(Palette{
	Primary:    lipgloss.Color("#f0b90b"),
	Foreground: lipgloss.Color("#eaecef"),
	Subtle:     lipgloss.Color("#b7bdc6"),
	Muted:      lipgloss.Color("#848e9c"),
	Border:     lipgloss.Color("#474d57"),
	Info:       lipgloss.Color("#3b82f6"),
	Success:    lipgloss.Color("#0ecb81"),
	Warning:    lipgloss.Color("#f59e0b"),
	Error:      lipgloss.Color("#f6465d"),
	BadgeText:  lipgloss.Color("#ffffff"),
})
