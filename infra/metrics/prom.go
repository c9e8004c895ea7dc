package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cellage/core/metrics"
)

// PromSink exposes experiment progress as Prometheus metrics. Series are
// labelled by condition rather than run so cardinality stays bounded by the
// condition matrix.
type PromSink struct {
	checkups *prometheus.CounterVec
	capacity *prometheus.GaugeVec
	loss     *prometheus.GaugeVec
	runs     *prometheus.CounterVec
	wall     *prometheus.HistogramVec
	active   prometheus.Gauge
	progress prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		checkups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellage_checkups_total",
			Help: "Number of completed check-ups",
		}, []string{"age_type"}),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cellage_capacity_remaining_ah",
			Help: "Remaining capacity after the latest check-up",
		}, []string{"condition"}),
		loss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cellage_capacity_loss_fraction",
			Help: "Relative capacity loss per aging mechanism",
		}, []string{"condition", "mechanism"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellage_runs_total",
			Help: "Finished experiment runs by status",
		}, []string{"age_type", "status"}),
		wall: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cellage_run_duration_seconds",
			Help:    "Wall-clock time spent simulating one run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"age_type"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cellage_runs_active",
			Help: "Runs currently being simulated",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cellage_batch_progress_ratio",
			Help: "Fraction of runs of the current batch that finished",
		}),
	}
	var err error
	if s.checkups, err = register(reg, s.checkups); err != nil {
		return nil, err
	}
	if s.capacity, err = register(reg, s.capacity); err != nil {
		return nil, err
	}
	if s.loss, err = register(reg, s.loss); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.wall, err = register(reg, s.wall); err != nil {
		return nil, err
	}
	if s.active, err = register(reg, s.active); err != nil {
		return nil, err
	}
	if s.progress, err = register(reg, s.progress); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCheckup updates the counters and the capacity gauges.
func (s *PromSink) RecordCheckup(ev coremetrics.CheckupEvent) error {
	s.checkups.WithLabelValues(ev.AgeType).Inc()
	s.capacity.WithLabelValues(ev.Condition).Set(ev.CapRemaining)
	a := ev.Aging
	s.loss.WithLabelValues(ev.Condition, "sei").Set(a.QSEI)
	s.loss.WithLabelValues(ev.Condition, "cyclic").Set(a.QCyclic)
	s.loss.WithLabelValues(ev.Condition, "cyclic_low").Set(a.QCyclicLow)
	s.loss.WithLabelValues(ev.Condition, "plating").Set(a.QPlating)
	return nil
}

// RecordRun counts the run outcome and observes its wall time.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.AgeType, ev.Status).Inc()
	s.wall.WithLabelValues(ev.AgeType).Observe(ev.Wall.Seconds())
	return nil
}

// RecordProgress tracks active runs and the batch completion ratio.
func (s *PromSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	switch ev.Stage {
	case coremetrics.StageStarted:
		s.active.Inc()
	case coremetrics.StageFinished:
		s.active.Dec()
	}
	if ev.Total > 0 {
		s.progress.Set(float64(ev.Done) / float64(ev.Total))
	}
	return nil
}
