package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/testutil"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
)

const simulatePath = "/binance/testnet-simulate"

func TestResolveSimulation(t *testing.T) {
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		FormConfigs: map[string]map[string]string{
			"nightly": {
				model.FieldNumTransactions: "200",
				model.FieldAnomalyRate:     "15",
				model.FieldPriceRange:      "high",
			},
			"broken": {model.FieldNumTransactions: "lots"},
		},
	})

	stress, _ := model.Preset("stress")

	tests := []struct {
		name    string
		wantErr error
		args    []string
		want    model.SimulationConfig
	}{
		{
			name: "defaults",
			want: model.DefaultSimulationConfig(),
		},
		{
			name: "preset",
			args: []string{"--preset", "stress"},
			want: stress,
		},
		{
			name: "flags override preset",
			args: []string{"--preset", "stress", "-n", "10", "--volume-range", "low"},
			want: model.SimulationConfig{
				NumTransactions: 10,
				TransactionType: stress.TransactionType,
				AnomalyRate:     stress.AnomalyRate,
				PriceRange:      stress.PriceRange,
				VolumeRange:     "low",
			},
		},
		{
			name: "saved form",
			args: []string{"--form", "nightly"},
			want: model.SimulationConfig{
				NumTransactions: 200,
				TransactionType: "mixed",
				AnomalyRate:     15,
				PriceRange:      "high",
				VolumeRange:     "normal",
			},
		},
		{
			name:    "unknown preset",
			args:    []string{"--preset", "chaos"},
			wantErr: model.ErrInvalidSimulation,
		},
		{
			name:    "missing form",
			args:    []string{"--form", "weekly"},
			wantErr: common.ErrNotFound,
		},
		{
			name:    "unparsable form",
			args:    []string{"--form", "broken"},
			wantErr: model.ErrInvalidSimulation,
		},
		{
			name:    "anomaly rate out of range",
			args:    []string{"--anomaly-rate", "150"},
			wantErr: model.ErrInvalidSimulation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := testnetSimulateCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			got, err := resolveSimulation(context.Background(), cmd, db.Storage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimulatePlain(t *testing.T) {
	env := setupCmdEnv(t)

	out, err := runCmd(t, testnetSimulateCmd(), "", "--plain", "-n", "20", "--anomaly-rate", "25")
	require.NoError(t, err)

	assert.True(t, tuitest.ContainsInOrder(out,
		"Simulating 20 transactions",
		"Total Transactions", "20",
		"Anomalies Detected", "5",
		"Accuracy", "90.0%",
		"Analysis Time", "12:00:00",
		"Transaction Flow",
		"Simulation completed successfully",
	), out)

	// two normal transactions of five stages, two anomalies of six
	assert.Equal(t, 22, strings.Count(out, "[tx "))
	assert.Contains(t, out, "Anomaly Detected")
	assert.Contains(t, out, "Normal Transaction")
	assert.Equal(t, 1, env.fixture.Count(http.MethodPost, simulatePath))

	summary, err := env.store(t).GetLastSimulationSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, summary.TotalTransactions)
	assert.Equal(t, 5, summary.AnomaliesDetected)
}

func TestSimulatePlainWithoutPlayback(t *testing.T) {
	setupCmdEnv(t)

	out, err := runCmd(t, testnetSimulateCmd(), "", "--plain", "--no-playback", "--preset", "basic")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Transactions")
	assert.NotContains(t, out, "[tx ")
	assert.NotContains(t, out, "Transaction Flow")
}

func TestSimulateFailures(t *testing.T) {
	t.Run("rejected by server", func(t *testing.T) {
		env := setupCmdEnv(t)
		env.fixture.FailApp(http.MethodPost, simulatePath, "simulator offline")

		_, err := runCmd(t, testnetSimulateCmd(), "", "--plain")
		require.Error(t, err)
		assert.Equal(t, "Simulation failed", common.UserMessage(err))
		assert.ErrorIs(t, err, common.ErrAPIFailure)

		_, err = env.store(t).GetLastSimulationSummary(context.Background())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid parameters never reach the server", func(t *testing.T) {
		env := setupCmdEnv(t)

		_, err := runCmd(t, testnetSimulateCmd(), "", "--plain", "-n", "0")
		assert.ErrorIs(t, err, model.ErrInvalidSimulation)
		assert.Equal(t, 0, env.fixture.Count(http.MethodPost, simulatePath))
	})
}

func TestHistoryCommand(t *testing.T) {
	env := setupCmdEnv(t)

	out, err := runCmd(t, testnetHistoryCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs")
	assert.Contains(t, out, "No simulation runs yet")

	_, err = runCmd(t, testnetSimulateCmd(), "", "--plain", "--no-playback", "-n", "40")
	require.NoError(t, err)

	out, err = runCmd(t, testnetHistoryCmd(), "")
	require.NoError(t, err)
	assert.True(t, tuitest.ContainsInOrder(out, "Total Runs", "1", "Average Accuracy", "90.0%"), out)
	assert.Contains(t, out, "TRANSACTIONS")
	assert.Contains(t, out, "2024-06-10 12:00:00")
	assert.Equal(t, 2, env.fixture.Count(http.MethodGet, "/binance/testnet-history"))
}

func TestHistoryClear(t *testing.T) {
	const clearPath = "/binance/testnet-history"

	t.Run("declined", func(t *testing.T) {
		env := setupCmdEnv(t)
		out, err := runCmd(t, testnetHistoryCmd(), "n\n", "--clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Clear all simulation history? [y/N]")
		assert.Contains(t, out, "Nothing cleared")
		assert.Equal(t, 0, env.fixture.Count(http.MethodDelete, clearPath))
	})

	t.Run("end of input declines", func(t *testing.T) {
		env := setupCmdEnv(t)
		_, err := runCmd(t, testnetHistoryCmd(), "", "--clear")
		require.NoError(t, err)
		assert.Equal(t, 0, env.fixture.Count(http.MethodDelete, clearPath))
	})

	t.Run("confirmed", func(t *testing.T) {
		env := setupCmdEnv(t)
		out, err := runCmd(t, testnetHistoryCmd(), "y\n", "--clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Simulation history cleared")
		assert.Equal(t, 1, env.fixture.Count(http.MethodDelete, clearPath))
	})

	t.Run("yes flag", func(t *testing.T) {
		env := setupCmdEnv(t)
		_, err := runCmd(t, testnetHistoryCmd(), "", "--clear", "--yes")
		require.NoError(t, err)
		assert.Equal(t, 1, env.fixture.Count(http.MethodDelete, clearPath))
	})

	t.Run("failure", func(t *testing.T) {
		env := setupCmdEnv(t)
		env.fixture.FailApp(http.MethodDelete, clearPath, "nope")
		_, err := runCmd(t, testnetHistoryCmd(), "", "--clear", "-y")
		require.Error(t, err)
		assert.Equal(t, "Failed to clear history", common.UserMessage(err))
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("nothing to export", func(t *testing.T) {
		setupCmdEnv(t)
		_, err := runCmd(t, testnetExportCmd(), "", "-o", "-")
		require.Error(t, err)
		assert.Equal(t, "No simulation results to export", common.UserMessage(err))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("stdout", func(t *testing.T) {
		env := setupCmdEnv(t)
		require.NoError(t, env.store(t).SaveSimulationSummary(context.Background(), model.SimulationSummary{
			TotalTransactions: 50,
			AnomaliesDetected: 5,
			AccuracyScore:     0.9,
			AnalysisTimestamp: "2024-06-10T12:00:00",
		}))

		out, err := runCmd(t, testnetExportCmd(), "", "--output", "-")
		require.NoError(t, err)
		assert.Equal(t, "Metric,Value\n"+
			"Total Transactions,50\n"+
			"Anomalies Detected,5\n"+
			"Accuracy,90.0%\n"+
			"Analysis Time,12:00:00\n", out)
	})

	t.Run("file", func(t *testing.T) {
		env := setupCmdEnv(t)
		require.NoError(t, env.store(t).SaveSimulationSummary(context.Background(), model.SimulationSummary{
			TotalTransactions: 8,
			AnomaliesDetected: 2,
			AccuracyScore:     0.75,
			AnalysisTimestamp: "2024-06-10T09:30:15",
		}))

		path := filepath.Join(t.TempDir(), "out.csv")
		out, err := runCmd(t, testnetExportCmd(), "", "-o", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Simulation results exported to "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Accuracy,75.0%\n")
		assert.Contains(t, string(data), "Analysis Time,09:30:15\n")
	})
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "testnet_simulation_2024-06-10.csv", exportFileName(now))
}

func TestExpectedSteps(t *testing.T) {
	history := []decimal.Decimal{decimal.NewFromFloat(0.2), decimal.NewFromFloat(7.5)}
	batch := model.Batch{
		{FromAccount: "a", ToAccount: "b"},
		{FromAccount: "c", ToAccount: "d", IsAnomaly: true},
		{FromAccount: "e", ToAccount: "f", IsAnomaly: true, History: history},
	}
	assert.Equal(t, 5+5+6, expectedSteps(batch))
	assert.Equal(t, 0, expectedSteps(nil))
}

func TestFormatPlainStep(t *testing.T) {
	tx := model.Transaction{FromAccount: "user_1", ToAccount: "user_2", IsAnomaly: true}

	line := formatPlainStep(playback.Step{Tx: tx, Index: 2, Stage: playback.StageDecision, Text: tx.Verdict()})
	assert.True(t, strings.HasPrefix(line, "[tx 3]"), line)
	assert.Contains(t, line, "Anomaly Detected")

	step := playback.Step{Tx: tx, Index: 0, Stage: playback.StageProcessing, Text: "user_1 → user_2 processing..."}
	assert.Equal(t, playback.FormatStep(step), formatPlainStep(step))
}
