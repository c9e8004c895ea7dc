package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/experiment"
	"github.com/kilianp07/cellage/core/factory"
	"github.com/kilianp07/cellage/core/metrics"
	"github.com/kilianp07/cellage/core/results"
	"github.com/kilianp07/cellage/infra/mqtt"
)

type Config struct {
	Cell       battery.Parameters   `json:"cell"`
	Experiment ExperimentConfig     `json:"experiment"`
	Results    factory.ModuleConfig `json:"results"`
	Metrics    metrics.Config       `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Sentry     SentryConfig         `json:"sentry"`
	Logging    LoggingConfig        `json:"logging"`
}

// Default returns the configuration used when a key is absent from the
// file: the fitted cell and the laboratory test matrix.
func Default() Config {
	p := battery.DefaultParameters()
	cfg := Config{
		Cell: p,
		Experiment: ExperimentConfig{
			Settings: experiment.DefaultSettings(p),
			Matrix:   experiment.DefaultMatrix(),
		},
	}
	// Follows cell.cap_initial unless set explicitly.
	cfg.Experiment.Settings.Storage.CapInitial = 0
	return cfg
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills the values that depend on other sections.
func (c *Config) SetDefaults() {
	if c.Experiment.Settings.Storage.CapInitial == 0 {
		c.Experiment.Settings.Storage.CapInitial = c.Cell.CapInitial
	}
	c.Experiment.SetDefaults()
	if c.Results.Type == "" {
		c.Results = factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "cellage-results.jsonl"}}
	}
	if len(c.Metrics.Sinks) == 0 {
		c.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	}
	c.Logging.SetDefaults()
}

// Validate reports every invalid section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Cell.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cell: %w", err))
	}
	if err := c.Experiment.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("experiment: %w", err))
	}
	if !contains(results.StoreTypes(), c.Results.Type) {
		errs = append(errs, fmt.Errorf("results: unknown store type %q", c.Results.Type))
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("metrics: sink %d has no type", i))
		}
	}
	if err := c.Sentry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sentry: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
