package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/chainwatch/internal/alerts"
	"github.com/Veraticus/chainwatch/internal/api"
	"github.com/Veraticus/chainwatch/internal/certs"
	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/config"
	"github.com/Veraticus/chainwatch/internal/service"
	"github.com/Veraticus/chainwatch/internal/storage"
	"github.com/Veraticus/chainwatch/internal/tui"
)

// envKeyReplacer maps api.base_url to CHAINWATCH_API_BASE_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// loadSettings resolves and validates the current configuration.
func loadSettings() (*config.Settings, error) {
	config.SetDefaults(viper.GetViper())
	return config.Load(viper.GetViper())
}

// initStorage opens the local database and brings its schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(settings.Database.Path)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newAPIClient builds the analysis service client from settings.
func newAPIClient(settings *config.Settings) (*api.Client, error) {
	opts := []api.Option{api.WithLogger(slog.Default())}
	if settings.API.CAFile != "" {
		pool, err := certs.LoadPool(settings.API.CAFile)
		if err != nil {
			return nil, common.NewUserError("Cannot trust "+settings.API.CAFile, err)
		}
		opts = append(opts, api.WithRootCAs(pool))
	}
	return api.New(api.Config{
		BaseURL: settings.API.BaseURL,
		Session: settings.API.Session,
		Timeout: settings.API.Timeout,
	}, opts...)
}

// newNotifiers returns the email notifier, which follows the email
// preference, and a Discord relay when a bot token is configured. The
// relay is nil otherwise. The returned func releases the Discord session.
func newNotifiers(settings *config.Settings, client alerts.EmailSender) (alerts.Notifier, alerts.Notifier, func()) {
	email := alerts.NewEmailNotifier(client)
	discord := alerts.NewDiscordNotifier(slog.Default(),
		settings.Alerts.Discord.Token, settings.Alerts.Discord.ChannelID)

	if !discord.Enabled() {
		return email, nil, func() {}
	}

	slog.Info("Discord alerts enabled", "channel", settings.Alerts.Discord.ChannelID)
	return email, discord, func() {
		if err := discord.Close(); err != nil {
			slog.Warn("Failed to close discord session", "error", err)
		}
	}
}

// tuiOptions carries the polling, paging and playback settings into a screen.
func tuiOptions(settings *config.Settings) []tui.Option {
	return []tui.Option{
		tui.WithLogger(slog.Default()),
		tui.WithIntervals(tui.Intervals{
			Analysis: settings.Poll.Analysis,
			Market:   settings.Poll.Market,
			Stats:    settings.Poll.Stats,
			Activity: settings.Poll.Activity,
			Liveness: settings.Poll.Liveness,
		}),
		tui.WithPageSize(settings.Pagination.PageSize),
		tui.WithStepDelay(settings.Playback.StepDelay),
		tui.WithEmailAlerts(settings.Alerts.Email),
	}
}

// session bundles what most commands need: settings, the API client and
// the local store.
type session struct {
	settings *config.Settings
	client   *api.Client
	store    service.Storage
}

func openSession(ctx context.Context, withStore bool) (*session, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	client, err := newAPIClient(settings)
	if err != nil {
		return nil, err
	}
	s := &session{settings: settings, client: client}
	if withStore {
		if s.store, err = initStorage(ctx, settings); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
