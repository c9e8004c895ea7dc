package app

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellage/config"
	"github.com/kilianp07/cellage/core/experiment"
	"github.com/kilianp07/cellage/core/factory"
	coremetrics "github.com/kilianp07/cellage/core/metrics"
	coremqtt "github.com/kilianp07/cellage/core/mqtt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	s := &cfg.Experiment.Settings
	s.Storage.StorageDays = 10
	s.FirstInterval = 24 * time.Hour
	s.MaxCheckups = 2
	s.Workers = 2
	cfg.Experiment.Matrix = experiment.Matrix{
		Temps:            []float64{25, 40},
		CalendarVoltages: []float64{3.736},
		CalendarSoCs:     []float64{50},
		AgeTypes:         []experiment.AgeType{experiment.Calendar},
	}
	cfg.Experiment.ResultsCSV = filepath.Join(dir, "results.csv")
	cfg.Experiment.Report = filepath.Join(dir, "report.html")
	cfg.Results = factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": filepath.Join(dir, "checkups.jsonl")}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestService_Run(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })
	require.Len(t, svc.Conditions(), 2)

	out, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, r := range out {
		assert.Equal(t, coremetrics.RunCompleted, r.Outcome.Status)
		assert.Len(t, r.Records, 2)
	}

	f, err := os.Open(cfg.Experiment.ResultsCSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 5, "header plus two check-ups per condition")

	html, err := os.ReadFile(cfg.Experiment.Report)
	require.NoError(t, err)
	assert.Contains(t, string(html), "calendar aging")

	_, err = os.Stat(filepath.Join(filepath.Dir(cfg.Experiment.ResultsCSV), "checkups.jsonl"))
	assert.NoError(t, err)
}

func TestService_Canceled(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	for _, r := range out {
		assert.Equal(t, coremetrics.RunCanceled, r.Outcome.Status)
	}
	_, statErr := os.Stat(cfg.Experiment.ResultsCSV)
	assert.NoError(t, statErr, "the results table is written for partial studies")
}

func TestService_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Experiment.Profiles = []string{filepath.Join(t.TempDir(), "absent.yaml")}
	_, err := New(cfg)
	assert.ErrorContains(t, err, "profiles:")

	cfg = testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "statsd"}}
	_, err = New(cfg)
	assert.ErrorContains(t, err, "metrics sinks")

	cfg = testConfig(t)
	cfg.Results = factory.ModuleConfig{Type: "jsonl"}
	_, err = New(cfg)
	assert.ErrorContains(t, err, "path is required")
}

func TestService_HandleControl(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	assert.NotPanics(t, func() {
		svc.handleControl(coremqtt.Command{Command: coremqtt.CommandCancel, RunID: "missing"})
		svc.handleControl(coremqtt.Command{Command: coremqtt.CommandCancel})
		svc.handleControl(coremqtt.Command{Command: "pause"})
	})
}
