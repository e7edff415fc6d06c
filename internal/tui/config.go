package tui

import (
	"log/slog"
	"time"

	"github.com/Veraticus/chainwatch/internal/alerts"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/pager"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/poll"
	"github.com/Veraticus/chainwatch/internal/service"
	"github.com/Veraticus/chainwatch/internal/tui/components"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme           themes.Theme
	API             service.AnalysisAPI
	Storage         service.Storage
	Notifier        alerts.Notifier
	Relays          []alerts.Notifier
	Clock           poll.Clock
	Logger          *slog.Logger
	Simulation      model.SimulationConfig
	Intervals       Intervals
	RecordDir       string
	PageSize        int
	StepDelay       time.Duration
	NotificationTTL time.Duration
	Width           int
	Height          int
	EmailAlerts     bool
	AutoStart       bool
	ShowHelp        bool
}

// Intervals are the polling periods for each background refresh.
type Intervals struct {
	Analysis time.Duration
	Market   time.Duration
	Stats    time.Duration
	Activity time.Duration
	Liveness time.Duration
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:      themes.Default,
		Clock:      poll.SystemClock,
		Logger:     slog.Default(),
		Simulation: model.DefaultSimulationConfig(),
		Intervals: Intervals{
			Analysis: poll.AnalysisInterval,
			Market:   poll.MarketDataInterval,
			Stats:    poll.StatsInterval,
			Activity: poll.ActivityInterval,
			Liveness: poll.LivenessInterval,
		},
		PageSize:        pager.DefaultPageSize,
		StepDelay:       playback.DefaultStepDelay,
		NotificationTTL: components.DefaultNotificationTTL,
		Width:           100,
		Height:          30,
		EmailAlerts:     true,
	}
}

func buildConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithAPI sets the analysis API client.
func WithAPI(api service.AnalysisAPI) Option {
	return func(c *Config) {
		c.API = api
	}
}

// WithStorage sets the local store. Alerts and simulation summaries are
// persisted when set.
func WithStorage(storage service.Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithNotifier sets the email notifier, gated by the email preference.
func WithNotifier(n alerts.Notifier) Option {
	return func(c *Config) {
		c.Notifier = n
	}
}

// WithRelay adds notifiers that receive every alert, such as Discord.
func WithRelay(n ...alerts.Notifier) Option {
	return func(c *Config) {
		c.Relays = append(c.Relays, n...)
	}
}

// WithEmailAlerts sets the initial email preference.
func WithEmailAlerts(enabled bool) Option {
	return func(c *Config) {
		c.EmailAlerts = enabled
	}
}

// WithClock overrides the poll clock.
func WithClock(clock poll.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithIntervals sets the polling periods.
func WithIntervals(iv Intervals) Option {
	return func(c *Config) {
		c.Intervals = iv
	}
}

// WithPageSize sets the trade table page size.
func WithPageSize(n int) Option {
	return func(c *Config) {
		c.PageSize = n
	}
}

// WithStepDelay sets the playback delay between stages.
func WithStepDelay(d time.Duration) Option {
	return func(c *Config) {
		c.StepDelay = d
	}
}

// WithNotificationTTL sets how long notifications stay visible.
func WithNotificationTTL(d time.Duration) Option {
	return func(c *Config) {
		c.NotificationTTL = d
	}
}

// WithSimulation sets the testnet simulation parameters.
func WithSimulation(sim model.SimulationConfig) Option {
	return func(c *Config) {
		c.Simulation = sim
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithRecording captures every frame under dir for debugging.
func WithRecording(dir string) Option {
	return func(c *Config) {
		c.RecordDir = dir
	}
}

// WithAutoStart starts live analysis as soon as the screen opens.
func WithAutoStart(enabled bool) Option {
	return func(c *Config) {
		c.AutoStart = enabled
	}
}
