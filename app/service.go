package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	resultsapi "github.com/kilianp07/cellage/api/results"
	"github.com/kilianp07/cellage/config"
	"github.com/kilianp07/cellage/core/experiment"
	coremetrics "github.com/kilianp07/cellage/core/metrics"
	coremon "github.com/kilianp07/cellage/core/monitoring"
	coremqtt "github.com/kilianp07/cellage/core/mqtt"
	"github.com/kilianp07/cellage/core/results"
	"github.com/kilianp07/cellage/infra/logger"
	"github.com/kilianp07/cellage/infra/metrics"
	"github.com/kilianp07/cellage/infra/monitoring"
	"github.com/kilianp07/cellage/infra/mqtt"
	"github.com/kilianp07/cellage/internal/eventbus"
	"github.com/kilianp07/cellage/pkg/export"
	"github.com/kilianp07/cellage/pkg/profiles"
	"github.com/kilianp07/cellage/pkg/report"
)

// Service runs an aging study with every configured output attached.
type Service struct {
	cfg    *config.Config
	conds  []experiment.Condition
	store  results.Store
	sink   coremetrics.MetricsSink
	bus    *eventbus.TypedBus[coremetrics.ProgressEvent]
	client *mqtt.PahoClient
	runner atomic.Pointer[experiment.Runner]
	log    logger.Logger
}

// Option adjusts the service before it starts.
type Option func(*Service)

// WithConditions replaces the conditions expanded from the matrix.
func WithConditions(c []experiment.Condition) Option {
	return func(s *Service) { s.conds = c }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service")}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	lib, err := profiles.NewLibrary(cfg.Experiment.Profiles...)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	s.conds, err = cfg.Experiment.Matrix.Conditions(lib)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(s)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT, mqtt.WithControlHandler(s.handleControl))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		sink = coremetrics.NewMultiSink(sink, metrics.NewMQTTSink(client, cfg.MQTT.TopicPrefix))
	}
	s.sink = sink

	s.store, err = results.Open(cfg.Results)
	if err != nil {
		s.closeSinks()
		return nil, err
	}
	s.bus = eventbus.NewTyped[coremetrics.ProgressEvent](eventbus.WithBuffer(256))
	s.runner.Store(experiment.NewRunner(cfg.Cell, cfg.Experiment.Settings,
		experiment.WithStore(s.store),
		experiment.WithSink(s.sink),
		experiment.WithBus(s.bus),
		experiment.WithLogger(logger.New("runner")),
	))
	return s, nil
}

// Conditions returns the conditions Run simulates.
func (s *Service) Conditions() []experiment.Condition { return s.conds }

// Runner exposes the batch runner, mainly to cancel runs.
func (s *Service) Runner() *experiment.Runner { return s.runner.Load() }

// Routes are the HTTP endpoints served next to /metrics.
func (s *Service) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/api/checkups": resultsapi.NewCheckupHandler(s.store, s.cfg.Metrics.APIToken),
	}
}

// Run simulates every condition, then writes the results table and the
// optional report. Outputs are written even when ctx is canceled so that
// finished runs are kept.
func (s *Service) Run(ctx context.Context) ([]experiment.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, prometheus.DefaultGatherer, s.Routes()); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink)

	s.log.Infof("simulating %d conditions on %d workers", len(s.conds), s.cfg.Experiment.Settings.Workers)
	out, runErr := s.Runner().Run(ctx, s.conds)

	var recs []results.Record
	for _, r := range out {
		recs = append(recs, r.Records...)
	}
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if path := s.cfg.Experiment.ResultsCSV; path != "" {
		if err := export.SaveResults(path, recs); err != nil {
			errs = append(errs, err)
		} else {
			s.log.Infof("wrote %d check-ups to %s", len(recs), path)
		}
	}
	if path := s.cfg.Experiment.Report; path != "" {
		if err := report.Save(path, recs, report.Options{Nominal: s.cfg.Cell.CapNominal}); err != nil {
			errs = append(errs, err)
		} else {
			s.log.Infof("wrote report to %s", path)
		}
	}
	return out, errors.Join(errs...)
}

func (s *Service) handleControl(cmd coremqtt.Command) {
	r := s.runner.Load()
	if r == nil {
		s.log.Warnf("control %q before the runner is ready", cmd.Command)
		return
	}
	switch cmd.Command {
	case coremqtt.CommandCancel:
		if cmd.RunID == "" {
			r.CancelAll()
			s.log.Warnf("canceling all runs")
			return
		}
		if !r.Cancel(cmd.RunID) {
			s.log.Warnf("cancel: run %s is not active", cmd.RunID)
		}
	default:
		s.log.Warnf("unknown control command %q", cmd.Command)
	}
}

type closer interface{ Close() }

func (s *Service) closeSinks() { closeSink(s.sink) }

func closeSink(sk coremetrics.MetricsSink) {
	if m, ok := sk.(*coremetrics.MultiSink); ok {
		for _, inner := range m.Sinks {
			closeSink(inner)
		}
		return
	}
	if c, ok := sk.(closer); ok {
		c.Close()
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.closeSinks()
	coremon.Flush(2 * time.Second)
	return s.store.Close()
}
