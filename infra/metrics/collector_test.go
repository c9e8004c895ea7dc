package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/cellage/core/metrics"
	"github.com/kilianp07/cellage/internal/eventbus"
)

func TestStartEventCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	bus := eventbus.NewTyped[coremetrics.ProgressEvent]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, coremetrics.NewMultiSink(coremetrics.NopSink{}, sink))

	assert.Eventually(t, func() bool {
		return bus.Publish(coremetrics.ProgressEvent{Stage: coremetrics.StageFinished, Done: 3, Total: 4}) > 0
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(sink.progress) == 0.75
	}, time.Second, 10*time.Millisecond)
	bus.Close()
}

func TestStartEventCollector_IgnoresPlainSinks(t *testing.T) {
	bus := eventbus.NewTyped[coremetrics.ProgressEvent]()
	StartEventCollector(context.Background(), bus, &fakeCheckupSink{})
	assert.Zero(t, bus.Publish(coremetrics.ProgressEvent{}))
}

type fakeCheckupSink struct{}

func (fakeCheckupSink) RecordCheckup(coremetrics.CheckupEvent) error { return nil }

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordCheckup(checkupEvent()))

	ping := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })
	srv := httptest.NewServer(Handler(reg, map[string]http.Handler{"/ping": ping}))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cellage_checkups_total")
	assert.Contains(t, string(body), `cellage_capacity_remaining_ah{condition="CAL 25C 3.736V"} 3.0581`)

	resp2, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	body, err = io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
}
