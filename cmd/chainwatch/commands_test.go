package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/config"
	"github.com/Veraticus/chainwatch/internal/model"
)

func TestClearCommands(t *testing.T) {
	tests := []struct {
		name   string
		target string
		path   string
		done   string
		failed string
	}{
		{"analyses", "analyses", "/api/user-analyses", "Analyses cleared", "Failed to clear analyses"},
		{"logs", "logs", "/api/user-activity-logs", "Activity logs cleared", "Failed to clear activity logs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCmdEnv(t)

			out, err := runCmd(t, clearCmd(), "n\n", tt.target)
			require.NoError(t, err)
			assert.Contains(t, out, "Nothing cleared")
			assert.Equal(t, 0, env.fixture.Count(http.MethodDelete, tt.path))

			out, err = runCmd(t, clearCmd(), "y\n", tt.target)
			require.NoError(t, err)
			assert.Contains(t, out, tt.done)
			assert.Equal(t, 1, env.fixture.Count(http.MethodDelete, tt.path))

			env.fixture.FailApp(http.MethodDelete, tt.path, "locked")
			_, err = runCmd(t, clearCmd(), "", tt.target, "--yes")
			require.Error(t, err)
			assert.Equal(t, tt.failed, common.UserMessage(err))
		})
	}
}

func TestConfigSaveShowDelete(t *testing.T) {
	env := setupCmdEnv(t)

	out, err := runCmd(t, configCmd(), "", "save", "nightly", "--preset", "anomaly", "-n", "75")
	require.NoError(t, err)
	assert.Contains(t, out, `Saved form "nightly"`)

	form, err := env.store(t).GetFormConfig(context.Background(), "nightly")
	require.NoError(t, err)
	assert.Equal(t, "75", form[model.FieldNumTransactions])
	assert.Equal(t, "anomaly", form[model.FieldTransactionType])

	out, err = runCmd(t, configCmd(), "", "show", "nightly")
	require.NoError(t, err)
	var shown map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, form, shown)

	out, err = runCmd(t, configCmd(), "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "base_url:")

	_, err = runCmd(t, configCmd(), "", "delete", "nightly")
	require.NoError(t, err)

	_, err = runCmd(t, configCmd(), "", "show", "nightly")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = runCmd(t, configCmd(), "", "delete", "nightly")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConfigSaveRejectsInvalidForm(t *testing.T) {
	env := setupCmdEnv(t)

	_, err := runCmd(t, configCmd(), "", "save", "bad", "--anomaly-rate=-5")
	assert.ErrorIs(t, err, model.ErrInvalidSimulation)

	names, err := env.store(t).ListFormConfigs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestConfigPreset(t *testing.T) {
	env := setupCmdEnv(t)

	out, err := runCmd(t, configCmd(), "", "preset")
	require.NoError(t, err)
	for _, name := range model.PresetNames() {
		assert.Contains(t, out, name)
	}

	out, err = runCmd(t, configCmd(), "", "preset", "stress")
	require.NoError(t, err)
	var preset model.SimulationConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &preset))
	want, _ := model.Preset("stress")
	assert.Equal(t, want, preset)

	_, err = runCmd(t, configCmd(), "", "preset", "stress", "--save")
	require.NoError(t, err)
	form, err := env.store(t).GetFormConfig(context.Background(), "stress")
	require.NoError(t, err)
	assert.Equal(t, want.Form(), form)

	_, err = runCmd(t, configCmd(), "", "preset", "chaos")
	assert.ErrorIs(t, err, model.ErrInvalidSimulation)
}

func TestConfigExport(t *testing.T) {
	setupCmdEnv(t)
	viper.Set(config.KeyAPISession, "secret-cookie")

	out, err := runCmd(t, configCmd(), "", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret-cookie")

	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err = runCmd(t, configCmd(), "", "export", "-o", path, "--show-secrets")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		API struct {
			Session string `yaml:"session"`
		} `yaml:"api"`
		Playback struct {
			StepDelay string `yaml:"step_delay"`
		} `yaml:"playback"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "secret-cookie", doc.API.Session)
	assert.Equal(t, "0s", doc.Playback.StepDelay)
}

func TestUploadCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(good, []byte("price,qty\n64000.5,0.25\n"), 0o600))
	text := filepath.Join(dir, "trades.txt")
	require.NoError(t, os.WriteFile(text, []byte("price,qty\n"), 0o600))

	t.Run("success prints the results page", func(t *testing.T) {
		env := setupCmdEnv(t)
		out, err := runCmd(t, uploadCmd(), "", good, "--quiet")
		require.NoError(t, err)
		assert.Contains(t, out, "Uploaded trades.csv")
		assert.Contains(t, out, "Results: ")
		assert.Contains(t, out, "/results/")
		require.Len(t, env.fixture.Uploads(), 1)
		assert.Equal(t, "trades.csv", env.fixture.Uploads()[0].FileName)
	})

	t.Run("progress bar", func(t *testing.T) {
		setupCmdEnv(t)
		out, err := runCmd(t, uploadCmd(), "", good)
		require.NoError(t, err)
		assert.Contains(t, out, "Uploading trades.csv")
	})

	t.Run("rejected locally", func(t *testing.T) {
		env := setupCmdEnv(t)
		_, err := runCmd(t, uploadCmd(), "", text)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrUploadInvalid)
		assert.Equal(t, "Cannot upload trades.txt", common.UserMessage(err))
		assert.Equal(t, 0, env.fixture.Count(http.MethodPost, "/upload"))
	})

	t.Run("missing file", func(t *testing.T) {
		setupCmdEnv(t)
		_, err := runCmd(t, uploadCmd(), "", filepath.Join(dir, "nope.csv"))
		assert.ErrorIs(t, err, common.ErrUploadInvalid)
	})
}
