package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/chainwatch/internal/cli"
	"github.com/Veraticus/chainwatch/internal/common"
)

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete server-side analysis data",
		Long:  `Remove every stored analysis or every activity log entry from your account on the analysis service.`,
	}

	cmd.PersistentFlags().BoolP("yes", "y", false, "Do not ask for confirmation")

	// Subcommands
	cmd.AddCommand(clearTargetCmd("analyses", "Delete all analyses", "Clear all analyses?",
		"Analyses cleared", "Failed to clear analyses",
		func(ctx context.Context, s *session) error { return s.client.ClearAnalyses(ctx) }))
	cmd.AddCommand(clearTargetCmd("logs", "Delete all activity logs", "Clear all activity logs?",
		"Activity logs cleared", "Failed to clear activity logs",
		func(ctx context.Context, s *session) error { return s.client.ClearActivityLogs(ctx) }))

	return cmd
}

func clearTargetCmd(use, short, question, done, failed string, clear func(context.Context, *session) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out, question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Nothing cleared"))
					return nil
				}
			}

			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := clear(ctx, s); err != nil {
				return common.NewUserError(failed, err)
			}
			fmt.Fprintln(out, cli.FormatSuccess(done))
			return nil
		},
	}
}
