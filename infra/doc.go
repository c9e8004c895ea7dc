// Package infra holds the adapters that take simulation results out of the
// process: zerolog logging, Prometheus, InfluxDB and MQTT sinks, the Paho
// client and Sentry. Nothing in core imports it.
package infra
