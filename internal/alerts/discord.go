package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/bwmarrin/discordgo"
)

const embedColorAnomaly = 0xE74C3C

// DiscordNotifier posts alerts to a Discord channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	logger    *slog.Logger
	channelID string
}

// NewDiscordNotifier creates a notifier. Without a token the notifier is
// inert and Notify does nothing.
func NewDiscordNotifier(logger *slog.Logger, token, channelID string) *DiscordNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &DiscordNotifier{logger: logger, channelID: channelID}

	if token == "" {
		logger.Debug("Discord token not set, Discord alerts disabled")
		return n
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("Failed to create discord session", "error", err)
		return n
	}
	n.session = session
	return n
}

// Enabled reports whether a session is available.
func (n *DiscordNotifier) Enabled() bool {
	return n.session != nil && n.channelID != ""
}

// Notify posts an embed for alert.
func (n *DiscordNotifier) Notify(_ context.Context, alert model.Alert) error {
	if !n.Enabled() {
		return nil
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, buildEmbed(alert)); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	n.logger.Info("Sent discord alert", "id", alert.ID)
	return nil
}

// Close releases the session.
func (n *DiscordNotifier) Close() error {
	if n.session == nil {
		return nil
	}
	return n.session.Close()
}

func buildEmbed(alert model.Alert) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Anomaly Detected",
		Description: fmt.Sprintf("Found %d suspicious transaction(s).", alert.Count),
		Color:       embedColorAnomaly,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Alert", Value: alert.ID, Inline: true},
			{Name: "Details", Value: alert.Details, Inline: false},
		},
		Timestamp: alert.CreatedAt.UTC().Format(time.RFC3339),
	}
}
