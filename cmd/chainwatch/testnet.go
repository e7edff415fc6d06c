package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/chainwatch/internal/cli"
	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/config"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/service"
	"github.com/Veraticus/chainwatch/internal/tui"
)

// readRetry covers the idempotent reads of one-shot commands.
var readRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2,
}

func testnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testnet",
		Short: "Run and review testnet simulations",
		Long:  `Generate simulated transactions on the analysis service and replay how each one was scored.`,
	}

	// Subcommands
	cmd.AddCommand(testnetSimulateCmd())
	cmd.AddCommand(testnetHistoryCmd())
	cmd.AddCommand(testnetExportCmd())

	return cmd
}

func testnetSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulation and play back its demo transactions",
		Long: `Ask the analysis service to generate and score a batch of testnet
transactions, then narrate the demo batch one stage at a time.

Parameters come from the defaults, then --preset or --form, then any
explicit flag. Press x or Ctrl+C to stop the playback.`,
		Example: `  chainwatch testnet simulate --preset stress
  chainwatch testnet simulate --form nightly --anomaly-rate 30
  chainwatch testnet simulate --plain --step-delay 0`,
		RunE: runSimulate,
	}

	addSimulationFlags(cmd)
	cmd.Flags().String("preset", "", "Start from a preset ("+strings.Join(model.PresetNames(), ", ")+")")
	cmd.Flags().String("form", "", "Start from a saved form configuration")
	cmd.Flags().Bool("plain", false, "Print playback as plain lines instead of the interactive screen")
	cmd.Flags().Bool("no-playback", false, "Print the summary only (plain mode)")
	cmd.Flags().Duration("step-delay", 0, "Delay between playback stages (default from config)")
	cmd.Flags().String("record", "", "Record every frame under this directory")

	_ = viper.BindPFlag(config.KeyStepDelay, cmd.Flags().Lookup("step-delay"))

	return cmd
}

func addSimulationFlags(cmd *cobra.Command) {
	def := model.DefaultSimulationConfig()
	cmd.Flags().IntP("transactions", "n", def.NumTransactions, "Number of transactions to generate")
	cmd.Flags().String("type", def.TransactionType, "Transaction type (mixed, normal, anomaly)")
	cmd.Flags().Int("anomaly-rate", def.AnomalyRate, "Percentage of anomalous transactions (0-100)")
	cmd.Flags().String("price-range", def.PriceRange, "Price range (low, normal, high, extreme)")
	cmd.Flags().String("volume-range", def.VolumeRange, "Volume range (low, normal, high, extreme)")
}

// resolveSimulation layers preset or saved form, then explicit flags, over
// the defaults.
func resolveSimulation(ctx context.Context, cmd *cobra.Command, store service.Storage) (model.SimulationConfig, error) {
	sim := model.DefaultSimulationConfig()

	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		preset, ok := model.Preset(name)
		if !ok {
			return sim, fmt.Errorf("%w: unknown preset %q (available: %s)",
				model.ErrInvalidSimulation, name, strings.Join(model.PresetNames(), ", "))
		}
		sim = preset
	}

	if name, _ := cmd.Flags().GetString("form"); name != "" {
		if store == nil {
			return sim, fmt.Errorf("%w: no database for saved forms", common.ErrMissingConfig)
		}
		form, err := store.GetFormConfig(ctx, name)
		if err != nil {
			return sim, fmt.Errorf("failed to load form %q: %w", name, err)
		}
		if sim, err = sim.ApplyForm(form); err != nil {
			return sim, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("transactions") {
		sim.NumTransactions, _ = flags.GetInt("transactions")
	}
	if flags.Changed("type") {
		sim.TransactionType, _ = flags.GetString("type")
	}
	if flags.Changed("anomaly-rate") {
		sim.AnomalyRate, _ = flags.GetInt("anomaly-rate")
	}
	if flags.Changed("price-range") {
		sim.PriceRange, _ = flags.GetString("price-range")
	}
	if flags.Changed("volume-range") {
		sim.VolumeRange, _ = flags.GetString("volume-range")
	}

	return sim, sim.Validate()
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	sim, err := resolveSimulation(ctx, cmd, s.store)
	if err != nil {
		return err
	}

	slog.Debug("Starting simulation",
		"transactions", sim.NumTransactions,
		"type", sim.TransactionType,
		"anomaly_rate", sim.AnomalyRate)

	if plain, _ := cmd.Flags().GetBool("plain"); !plain {
		opts := append(tuiOptions(s.settings),
			tui.WithAPI(s.client),
			tui.WithStorage(s.store),
			tui.WithSimulation(sim),
		)
		if record, _ := cmd.Flags().GetString("record"); record != "" {
			opts = append(opts, tui.WithRecording(config.ExpandPath(record)))
		}
		return tui.RunTestnet(ctx, opts...)
	}

	noPlayback, _ := cmd.Flags().GetBool("no-playback")
	return simulatePlain(ctx, cmd.OutOrStdout(), s, sim, !noPlayback)
}

func simulatePlain(ctx context.Context, out io.Writer, s *session, sim model.SimulationConfig, play bool) error {
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Simulating %d transactions...", sim.NumTransactions)))

	result, err := s.client.SimulateTestnet(ctx, sim)
	if err != nil {
		return common.NewUserError("Simulation failed", err)
	}

	fmt.Fprintln(out, cli.RenderBox(cli.ChainIcon+" Simulation Results", cli.RenderKeyValues(summaryRows(result.Summary))))

	if err := s.store.SaveSimulationSummary(ctx, result.Summary); err != nil {
		slog.Warn("Failed to save simulation summary", "error", err)
	}

	if !play || len(result.Demo) == 0 {
		return nil
	}

	fmt.Fprintln(out, cli.FormatTitle("Transaction Flow"))
	report := playPlain(ctx, out, result.Demo, s.settings.Playback.StepDelay)

	switch report.Outcome {
	case playback.Completed:
		fmt.Fprintln(out, cli.FormatSuccess("Simulation completed successfully"))
	case playback.Cancelled:
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Simulation playback stopped after %d of %d steps",
			report.Rendered, expectedSteps(result.Demo))))
	}
	return nil
}

// playPlain narrates batch onto out and blocks until the chain ends. The
// first interrupt stops the playback; the results stay on screen.
func playPlain(ctx context.Context, out io.Writer, batch model.Batch, delay time.Duration) playback.Report {
	done := make(chan playback.Report, 1)
	controller := playback.NewController(playback.NewTextSurface(out, formatPlainStep),
		playback.WithStepDelay(delay),
		playback.WithLogger(slog.Default()),
		playback.OnDone(func(r playback.Report) { done <- r }),
	)

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	handler := cli.NewInterruptHandler(out, "Simulation playback")
	playCtx := handler.HandleInterrupts(ctx, controller.Cancel)

	controller.Play(playCtx, batch)
	report := <-done
	controller.Wait()
	return report
}

func formatPlainStep(step playback.Step) string {
	if step.Stage == playback.StageDecision {
		return fmt.Sprintf("[tx %d] %-18s %s", step.Index+1, step.Stage,
			cli.FormatVerdict(step.Text, bool(step.Tx.IsAnomaly)))
	}
	return playback.FormatStep(step)
}

// expectedSteps counts the stages a full playback of batch renders.
func expectedSteps(batch model.Batch) int {
	n := 0
	for _, tx := range batch {
		n += playback.StageCount - 1
		if tx.HasHistoryDisclosure() {
			n++
		}
	}
	return n
}

// summaryRows are the four result cards, in display and export order.
func summaryRows(s model.SimulationSummary) [][2]string {
	return [][2]string{
		{"Total Transactions", strconv.Itoa(s.TotalTransactions)},
		{"Anomalies Detected", strconv.Itoa(s.AnomaliesDetected)},
		{"Accuracy", model.FormatAccuracy(s.AccuracyScore)},
		{"Analysis Time", s.AnalysisClock()},
	}
}

func testnetHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous simulation runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if clear, _ := cmd.Flags().GetBool("clear"); clear {
				yes, _ := cmd.Flags().GetBool("yes")
				return clearHistory(ctx, cmd.InOrStdin(), out, s, yes)
			}

			history, err := common.Retry(ctx, s.client.TestnetHistory, readRetry)
			if err != nil {
				return common.NewUserError("Failed to load simulation history", err)
			}
			printHistory(out, history)
			return nil
		},
	}

	cmd.Flags().Bool("clear", false, "Delete every stored simulation run")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func clearHistory(ctx context.Context, in io.Reader, out io.Writer, s *session, yes bool) error {
	if !yes {
		ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(in), out, "Clear all simulation history?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, cli.FormatInfo("Nothing cleared"))
			return nil
		}
	}
	if err := s.client.ClearTestnetHistory(ctx); err != nil {
		return common.NewUserError("Failed to clear history", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess("Simulation history cleared"))
	return nil
}

func printHistory(out io.Writer, history *model.SimulationHistory) {
	stats := history.Stats
	fmt.Fprintln(out, cli.RenderKeyValues([][2]string{
		{"Total Runs", strconv.Itoa(stats.TotalRuns)},
		{"Total Anomalies", strconv.Itoa(stats.TotalAnomalies)},
		{"Average Accuracy", model.FormatAccuracy(stats.AvgAccuracy)},
	}))
	fmt.Fprintln(out)

	if len(history.Runs) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No simulation runs yet"))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tTRANSACTIONS\tANOMALIES\tACCURACY\tDURATION")
	for _, run := range history.Runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n",
			run.ID, run.Timestamp, run.TotalTransactions, run.AnomaliesDetected,
			model.FormatAccuracy(run.AccuracyScore), run.DurationLabel())
	}
	_ = w.Flush()
}

func testnetExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the last simulation's metrics as CSV",
		Long: `Write the summary of the most recent simulation to a CSV file named
testnet_simulation_YYYY-MM-DD.csv, or to --output ("-" for stdout).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			summary, err := store.GetLastSimulationSummary(ctx)
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError("No simulation results to export", err)
			}
			if err != nil {
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = exportFileName(time.Now())
			}
			if output == "-" {
				return writeSummaryCSV(cmd.OutOrStdout(), *summary)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := writeSummaryCSV(f, *summary); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Simulation results exported to "+output))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default testnet_simulation_<date>.csv)")

	return cmd
}

func exportFileName(now time.Time) string {
	return "testnet_simulation_" + now.UTC().Format("2006-01-02") + ".csv"
}

func writeSummaryCSV(w io.Writer, summary model.SimulationSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	for _, row := range summaryRows(summary) {
		if err := cw.Write(row[:]); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
