package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/pager"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/poll"
)

// Viper keys.
const (
	KeyAPIBaseURL       = "api.base_url"
	KeyAPITimeout       = "api.timeout"
	KeyAPISession       = "api.session"
	KeyAPICAFile        = "api.ca_file"
	KeyPollAnalysis     = "poll.analysis_interval"
	KeyPollMarket       = "poll.market_interval"
	KeyPollStats        = "poll.stats_interval"
	KeyPollActivity     = "poll.activity_interval"
	KeyPollLiveness     = "poll.liveness_interval"
	KeyStepDelay        = "playback.step_delay"
	KeyPageSize         = "pagination.page_size"
	KeyAlertsEmail      = "alerts.email"
	KeyDiscordToken     = "alerts.discord.token"
	KeyDiscordChannelID = "alerts.discord.channel_id"
	KeyDatabasePath     = "database.path"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
)

// DefaultBaseURL is the local development address of the analysis service.
const DefaultBaseURL = "http://localhost:5000"

var getenv = os.Getenv

// Settings is the resolved runtime configuration.
type Settings struct {
	API        APISettings
	Poll       PollSettings
	Alerts     AlertSettings
	Database   DatabaseSettings
	Logging    LoggingSettings
	Playback   PlaybackSettings
	Pagination PaginationSettings
}

// APISettings configures the analysis service client.
type APISettings struct {
	BaseURL string
	Session string
	// CAFile is an extra PEM certificate to trust, empty for the system pool.
	CAFile  string
	Timeout time.Duration
}

// PollSettings holds the refresh interval of each poller.
type PollSettings struct {
	Analysis time.Duration
	Market   time.Duration
	Stats    time.Duration
	Activity time.Duration
	Liveness time.Duration
}

// PlaybackSettings configures the transaction narration.
type PlaybackSettings struct {
	StepDelay time.Duration
}

// PaginationSettings configures the trade table.
type PaginationSettings struct {
	PageSize int
}

// AlertSettings configures anomaly notifications.
type AlertSettings struct {
	Discord DiscordSettings
	Email   bool
}

// DiscordSettings configures the optional Discord notifier.
type DiscordSettings struct {
	Token     string
	ChannelID string
}

// DatabaseSettings locates the local SQLite database.
type DatabaseSettings struct {
	Path string
}

// LoggingSettings configures slog.
type LoggingSettings struct {
	Level  string
	Format string
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, DefaultBaseURL)
	v.SetDefault(KeyAPITimeout, 30*time.Second)
	v.SetDefault(KeyPollAnalysis, poll.AnalysisInterval)
	v.SetDefault(KeyPollMarket, poll.MarketDataInterval)
	v.SetDefault(KeyPollStats, poll.StatsInterval)
	v.SetDefault(KeyPollActivity, poll.ActivityInterval)
	v.SetDefault(KeyPollLiveness, poll.LivenessInterval)
	v.SetDefault(KeyStepDelay, playback.DefaultStepDelay)
	v.SetDefault(KeyPageSize, pager.DefaultPageSize)
	v.SetDefault(KeyAlertsEmail, true)
	v.SetDefault(KeyDatabasePath, "~/.local/share/chainwatch/chainwatch.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load resolves settings from v, falling back to plain environment
// variables for the Discord credentials.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		API: APISettings{
			BaseURL: strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
			Session: v.GetString(KeyAPISession),
			CAFile:  ExpandPath(v.GetString(KeyAPICAFile)),
			Timeout: v.GetDuration(KeyAPITimeout),
		},
		Poll: PollSettings{
			Analysis: v.GetDuration(KeyPollAnalysis),
			Market:   v.GetDuration(KeyPollMarket),
			Stats:    v.GetDuration(KeyPollStats),
			Activity: v.GetDuration(KeyPollActivity),
			Liveness: v.GetDuration(KeyPollLiveness),
		},
		Playback:   PlaybackSettings{StepDelay: v.GetDuration(KeyStepDelay)},
		Pagination: PaginationSettings{PageSize: v.GetInt(KeyPageSize)},
		Alerts: AlertSettings{
			Email: v.GetBool(KeyAlertsEmail),
			Discord: DiscordSettings{
				Token:     v.GetString(KeyDiscordToken),
				ChannelID: v.GetString(KeyDiscordChannelID),
			},
		},
		Database: DatabaseSettings{Path: ExpandPath(v.GetString(KeyDatabasePath))},
		Logging: LoggingSettings{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}

	if s.Alerts.Discord.Token == "" {
		s.Alerts.Discord.Token = getenv("DISCORD_BOT_TOKEN")
	}
	if s.Alerts.Discord.ChannelID == "" {
		s.Alerts.Discord.ChannelID = getenv("DISCORD_CHANNEL_ID")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports the first invalid setting.
func (s *Settings) Validate() error {
	if s.API.BaseURL == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyAPIBaseURL)
	}
	u, err := url.Parse(s.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) URL, got %q", common.ErrInvalidConfig, KeyAPIBaseURL, s.API.BaseURL)
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{KeyAPITimeout, s.API.Timeout},
		{KeyPollAnalysis, s.Poll.Analysis},
		{KeyPollMarket, s.Poll.Market},
		{KeyPollStats, s.Poll.Stats},
		{KeyPollActivity, s.Poll.Activity},
		{KeyPollLiveness, s.Poll.Liveness},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", common.ErrInvalidConfig, d.key, d.val)
		}
	}
	if s.Playback.StepDelay < 0 {
		return fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyStepDelay)
	}
	if s.Pagination.PageSize <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, KeyPageSize, s.Pagination.PageSize)
	}
	if (s.Alerts.Discord.Token == "") != (s.Alerts.Discord.ChannelID == "") {
		return fmt.Errorf("%w: %s and %s must be set together", common.ErrInvalidConfig, KeyDiscordToken, KeyDiscordChannelID)
	}
	if s.Database.Path == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if _, err := common.ParseLevel(s.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (s Settings) Redacted() Settings {
	if s.API.Session != "" {
		s.API.Session = "********"
	}
	if s.Alerts.Discord.Token != "" {
		s.Alerts.Discord.Token = "********"
	}
	return s
}

// YAML renders the settings as a config file, durations in Go notation.
func (s Settings) YAML() ([]byte, error) {
	doc := map[string]any{
		"api": map[string]any{
			"base_url": s.API.BaseURL,
			"session":  s.API.Session,
			"ca_file":  s.API.CAFile,
			"timeout":  s.API.Timeout.String(),
		},
		"poll": map[string]any{
			"analysis_interval": s.Poll.Analysis.String(),
			"market_interval":   s.Poll.Market.String(),
			"stats_interval":    s.Poll.Stats.String(),
			"activity_interval": s.Poll.Activity.String(),
			"liveness_interval": s.Poll.Liveness.String(),
		},
		"playback":   map[string]any{"step_delay": s.Playback.StepDelay.String()},
		"pagination": map[string]any{"page_size": s.Pagination.PageSize},
		"alerts": map[string]any{
			"email": s.Alerts.Email,
			"discord": map[string]any{
				"token":      s.Alerts.Discord.Token,
				"channel_id": s.Alerts.Discord.ChannelID,
			},
		},
		"database": map[string]any{"path": s.Database.Path},
		"logging": map[string]any{
			"level":  s.Logging.Level,
			"format": s.Logging.Format,
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return out, nil
}
