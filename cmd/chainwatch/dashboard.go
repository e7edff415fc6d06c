package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/chainwatch/internal/config"
	"github.com/Veraticus/chainwatch/internal/tui"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show account statistics and recent activity",
		Long: `Open the dashboard screen: totals, recent analyses and a per-day
activity chart, refreshed in the background.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := append(tuiOptions(s.settings), tui.WithAPI(s.client))
			if record, _ := cmd.Flags().GetString("record"); record != "" {
				opts = append(opts, tui.WithRecording(config.ExpandPath(record)))
			}
			return tui.RunDashboard(ctx, opts...)
		},
	}

	cmd.Flags().String("record", "", "Record every frame under this directory")

	return cmd
}
