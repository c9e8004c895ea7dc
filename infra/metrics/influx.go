package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/cellage/core/metrics"
	"github.com/kilianp07/cellage/infra/logger"
)

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes check-ups and run summaries to InfluxDB. Points carry the
// simulated timestamp of the event.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCheckup writes one "checkup" point.
func (s *InfluxSink) RecordCheckup(ev coremetrics.CheckupEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a := ev.Aging
	p := write.NewPointWithMeasurement("checkup").
		AddTag("run_id", ev.RunID).
		AddTag("condition", ev.Condition).
		AddTag("age_type", ev.AgeType).
		AddField("index", ev.Index).
		AddField("cap_remaining", round3(ev.CapRemaining)).
		AddField("measured_ah", round3(ev.MeasuredAh)).
		AddField("q_sei", a.QSEI).
		AddField("q_cyclic", a.QCyclic).
		AddField("q_cyclic_low", a.QCyclicLow).
		AddField("q_plating", a.QPlating).
		AddField("q_chg", round3(a.QChg)).
		AddField("q_dischg", round3(a.QDischg)).
		AddField("e_chg", round3(a.EChg)).
		AddField("e_dischg", round3(a.EDischg)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes one "run_summary" point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", ev.RunID).
		AddTag("condition", ev.Condition).
		AddTag("age_type", ev.AgeType).
		AddTag("status", ev.Status).
		AddField("checkups", ev.Checkups).
		AddField("cap_remaining", round3(ev.CapRemaining)).
		AddField("simulated_h", round3(ev.Simulated.Hours())).
		AddField("wall_s", round3(ev.Wall.Seconds()))
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
