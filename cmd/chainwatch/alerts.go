package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/chainwatch/internal/cli"
	"github.com/Veraticus/chainwatch/internal/common"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Review anomaly alerts",
		Long:  `List the alerts raised by live analysis, mark them read on the service, or clear the local log.`,
	}

	// Subcommands
	cmd.AddCommand(alertsListCmd())
	cmd.AddCommand(alertsReadCmd())
	cmd.AddCommand(alertsClearCmd())

	return cmd
}

func alertsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged alerts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			limit, _ := cmd.Flags().GetInt("limit")
			alerts, err := store.ListAlerts(ctx, limit)
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No alerts"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRAISED\tCOUNT\tMESSAGE")
			for _, a := range alerts {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					a.ID, a.CreatedAt.Format(time.DateTime), a.Count, a.Message())
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntP("limit", "l", 20, "Maximum number of alerts to show (0 for all)")

	return cmd
}

func alertsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark an alert as read on the analysis service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			err = common.WithRetry(ctx, func(ctx context.Context) error {
				return s.client.MarkAlertRead(ctx, args[0])
			}, readRetry)
			if err != nil {
				return common.NewUserError("Failed to mark alert as read", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Alert "+args[0]+" marked as read"))
			return nil
		},
	}
}

func alertsClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the local alert log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out, "Clear the alert log?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Nothing cleared"))
					return nil
				}
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.ClearAlerts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Cleared %d alert(s)", n)))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	return cmd
}
