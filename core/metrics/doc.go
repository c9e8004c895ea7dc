// Package metrics defines the sinks that receive experiment results.
// Every sink records check-ups; sinks that also implement RunRecorder get
// a summary when a run ends. NewMetricsSink builds sinks from configuration
// and wraps several of them in a MultiSink. Implementations live in
// infra/metrics and register themselves on import.
package metrics
