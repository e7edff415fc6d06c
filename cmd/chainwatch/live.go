package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/chainwatch/internal/config"
	"github.com/Veraticus/chainwatch/internal/tui"
)

func liveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Watch live BTC analysis",
		Long: `Open the live analysis screen.

Market data refreshes in the background. Press s to start polling the
analysis service for scored trades and x to stop. Detected anomalies
raise alerts and, when enabled, an email notification.`,
		RunE: runLive,
	}

	cmd.Flags().Bool("start", false, "Start analysis immediately")
	cmd.Flags().Bool("no-email", false, "Disable email notifications for this session")
	cmd.Flags().String("record", "", "Record every frame under this directory")
	cmd.Flags().Duration("interval", 0, "Analysis poll interval (default from config)")

	_ = viper.BindPFlag(config.KeyPollAnalysis, cmd.Flags().Lookup("interval"))

	return cmd
}

func runLive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	email, discord, closeNotifiers := newNotifiers(s.settings, s.client)
	defer closeNotifiers()

	start, _ := cmd.Flags().GetBool("start")
	noEmail, _ := cmd.Flags().GetBool("no-email")
	record, _ := cmd.Flags().GetString("record")

	opts := append(tuiOptions(s.settings),
		tui.WithAPI(s.client),
		tui.WithStorage(s.store),
		tui.WithNotifier(email),
		tui.WithAutoStart(start),
	)
	if discord != nil {
		opts = append(opts, tui.WithRelay(discord))
	}
	if noEmail {
		opts = append(opts, tui.WithEmailAlerts(false))
	}
	if record != "" {
		opts = append(opts, tui.WithRecording(config.ExpandPath(record)))
	}

	return tui.RunLive(ctx, opts...)
}
