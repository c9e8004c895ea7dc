package config

import "fmt"

// SentryConfig defines settings for Sentry error monitoring. Failed and
// panicking runs are reported with their run and condition tags.
type SentryConfig struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
	Release     string `json:"release"`
	// SampleRate is the share of error events sent, 1 when zero.
	SampleRate float64 `json:"sample_rate"`
	// Tags are attached to every event, e.g. the test bench or study name.
	Tags map[string]string `json:"tags"`
}

// Validate checks the sample rate.
func (s SentryConfig) Validate() error {
	if s.SampleRate < 0 || s.SampleRate > 1 {
		return fmt.Errorf("sample_rate %.2f outside [0,1]", s.SampleRate)
	}
	return nil
}
