package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellage/core/experiment"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `cell:
  r_th: 12
  cap_initial: 3.05
experiment:
  settings:
    max_checkups: 5
    next_interval: 336h
    workers: 2
  matrix:
    temps: [25]
    age_types: [calendar]
  profiles: [profiles/commute.yaml]
  report: out/report.html
results:
  type: sqlite
  conf:
    path: results.db
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: prometheus
    - type: influx
      conf:
        url: http://localhost:8086
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  topic_prefix: "lab"
sentry:
  dsn: ""
logging:
  level: debug
  file: cellage.log
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"cell.r_th", cfg.Cell.RTh, 12.0},
		{"cell.r0 default", cfg.Cell.R0, 0.05},
		{"max_checkups", cfg.Experiment.Settings.MaxCheckups, 5},
		{"next_interval", cfg.Experiment.Settings.NextInterval, 14 * 24 * time.Hour},
		{"first_interval default", cfg.Experiment.Settings.FirstInterval, 7 * 24 * time.Hour},
		{"storage cap follows cell", cfg.Experiment.Settings.Storage.CapInitial, 3.05},
		{"workers", cfg.Experiment.Settings.Workers, 2},
		{"temps", cfg.Experiment.Matrix.Temps, []float64{25}},
		{"age_types", cfg.Experiment.Matrix.AgeTypes, []experiment.AgeType{experiment.Calendar}},
		{"profiles", cfg.Experiment.Profiles, []string{"profiles/commute.yaml"}},
		{"results_csv default", cfg.Experiment.ResultsCSV, "results.csv"},
		{"report", cfg.Experiment.Report, "out/report.html"},
		{"results.type", cfg.Results.Type, "sqlite"},
		{"results.path", cfg.Results.Conf["path"], "results.db"},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"sinks", len(cfg.Metrics.Sinks), 2},
		{"influx url", cfg.Metrics.Sinks[1].Conf["url"], "http://localhost:8086"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "lab"},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.max_size_mb default", cfg.Logging.MaxSizeMB, 50},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
	assert.True(t, cfg.Experiment.Settings.Start.Equal(time.Unix(1665593100, 0)))

	conds, err := cfg.Experiment.Matrix.Conditions(nil)
	require.NoError(t, err)
	assert.Len(t, conds, 4, "four calendar voltages at one temperature")
}

func TestLoad_JSONDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{"experiment": {"settings": {"start": "2024-01-01T00:00:00Z"}}}`))
	require.NoError(t, err)

	assert.Equal(t, "jsonl", cfg.Results.Type)
	assert.Equal(t, "cellage-results.jsonl", cfg.Results.Conf["path"])
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "nop", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Experiment.Settings.Start.UTC())
	assert.Equal(t, cfg.Cell.CapInitial, cfg.Experiment.Settings.Storage.CapInitial)
	assert.Len(t, cfg.Experiment.Matrix.Temps, 4)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("K_EXPERIMENT__SETTINGS__MAX_CHECKUPS", "9")
	cfg, err := Load(writeConfig(t, "config.yaml", "experiment:\n  settings:\n    max_checkups: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Experiment.Settings.MaxCheckups)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		file string
		data string
		want string
	}{
		{"format", "config.toml", "", "unsupported config format"},
		{"cell", "c.yaml", "cell:\n  r0: 0\n", "cell:"},
		{"settings", "c.yaml", "experiment:\n  settings:\n    max_checkups: 0\n", "max_checkups"},
		{"store", "c.yaml", "results:\n  type: redis\n", `unknown store type "redis"`},
		{"sink", "c.yaml", "metrics:\n  sinks:\n    - conf: {}\n", "sink 0 has no type"},
		{"logging", "c.yaml", "logging:\n  format: xml\n", "unknown format xml"},
		{"sentry", "c.yaml", "sentry:\n  sample_rate: 2\n", "sentry: sample_rate 2.00 outside [0,1]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.file, c.data))
			assert.ErrorContains(t, err, c.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
