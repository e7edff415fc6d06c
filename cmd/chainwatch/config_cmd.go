package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/chainwatch/internal/cli"
	"github.com/Veraticus/chainwatch/internal/model"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage saved simulation forms and settings",
		Long: `Save simulation parameters under a name for reuse with
"testnet simulate --form", browse the presets, and inspect or export the
effective settings.`,
	}

	// Subcommands
	cmd.AddCommand(configSaveCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPresetCmd())
	cmd.AddCommand(configExportCmd())
	cmd.AddCommand(configDeleteCmd())

	return cmd
}

func configSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save simulation parameters under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sim, err := resolveSimulation(ctx, cmd, store)
			if err != nil {
				return err
			}
			if err := store.SaveFormConfig(ctx, args[0], sim.Form()); err != nil {
				return fmt.Errorf("failed to save form %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved form %q", args[0])))
			return nil
		},
	}

	addSimulationFlags(cmd)
	cmd.Flags().String("preset", "", "Start from a preset")
	cmd.Flags().String("form", "", "Start from another saved form")

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a saved form, or the saved forms and effective settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if len(args) == 1 {
				form, err := store.GetFormConfig(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to load form %q: %w", args[0], err)
				}
				return writeYAML(out, form)
			}

			names, err := store.ListFormConfigs(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatTitle("Saved forms"))
			if len(names) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No saved forms"))
			}
			for _, name := range names {
				fmt.Fprintln(out, "  "+name)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, cli.FormatTitle("Settings"))
			doc, err := settings.Redacted().YAML()
			if err != nil {
				return err
			}
			_, err = out.Write(doc)
			return err
		},
	}
}

func configPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset [name]",
		Short: "List the presets or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PRESET\tTRANSACTIONS\tTYPE\tANOMALY RATE\tPRICE\tVOLUME")
				for _, name := range model.PresetNames() {
					p, _ := model.Preset(name)
					fmt.Fprintf(w, "%s\t%d\t%s\t%d%%\t%s\t%s\n",
						name, p.NumTransactions, p.TransactionType, p.AnomalyRate, p.PriceRange, p.VolumeRange)
				}
				return w.Flush()
			}

			preset, ok := model.Preset(args[0])
			if !ok {
				return fmt.Errorf("%w: unknown preset %q", model.ErrInvalidSimulation, args[0])
			}

			if save, _ := cmd.Flags().GetBool("save"); save {
				ctx := cmd.Context()
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				store, err := initStorage(ctx, settings)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if err := store.SaveFormConfig(ctx, args[0], preset.Form()); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved preset %q as a form", args[0])))
				return nil
			}

			return writeYAML(out, preset)
		},
	}

	cmd.Flags().Bool("save", false, "Store the preset as a saved form of the same name")

	return cmd
}

func configExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the effective settings as a config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			if secrets, _ := cmd.Flags().GetBool("show-secrets"); !secrets {
				redacted := settings.Redacted()
				settings = &redacted
			}
			doc, err := settings.YAML()
			if err != nil {
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(output, doc, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Settings exported to "+output))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	cmd.Flags().Bool("show-secrets", false, "Include the session cookie and bot token")

	return cmd
}

func configDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteFormConfig(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete form %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted form %q", args[0])))
			return nil
		},
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
