package metrics

import "github.com/kilianp07/cellage/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr, when set, serves /metrics and /api/checkups while an
	// experiment runs.
	PrometheusAddr string `json:"prometheus_addr"`
	// APIToken protects /api/checkups with a bearer token when set.
	APIToken string `json:"api_token"`
}
