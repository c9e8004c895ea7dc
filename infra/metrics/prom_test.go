package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellage/core/battery"
	coremetrics "github.com/kilianp07/cellage/core/metrics"
)

func checkupEvent() coremetrics.CheckupEvent {
	return coremetrics.CheckupEvent{
		RunID:        "run-1",
		Condition:    "CAL 25C 3.736V",
		AgeType:      "calendar",
		Index:        1,
		Time:         time.Unix(1725000000, 0).UTC(),
		CapRemaining: 3.0581,
		MeasuredAh:   3.058,
		Aging:        battery.AgingState{QSEI: 0.0123, QCyclic: 0.001, QPlating: 0.0002},
	}
}

func TestPromSink_RecordCheckup(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	ev := checkupEvent()
	require.NoError(t, sink.RecordCheckup(ev))
	require.NoError(t, sink.RecordCheckup(ev))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.checkups.WithLabelValues("calendar")))
	assert.Equal(t, 3.0581, testutil.ToFloat64(sink.capacity.WithLabelValues(ev.Condition)))
	assert.Equal(t, 0.0123, testutil.ToFloat64(sink.loss.WithLabelValues(ev.Condition, "sei")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.loss.WithLabelValues(ev.Condition, "cyclic_low")))
	assert.Equal(t, 4, testutil.CollectAndCount(sink.loss))
}

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordRun(coremetrics.RunEvent{AgeType: "cyclic", Status: coremetrics.RunEndOfLife, Wall: 3 * time.Second}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("cyclic", coremetrics.RunEndOfLife)))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.wall))
}

func TestPromSink_RecordProgress(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	_ = sink.RecordProgress(coremetrics.ProgressEvent{Stage: coremetrics.StageStarted, Total: 4})
	_ = sink.RecordProgress(coremetrics.ProgressEvent{Stage: coremetrics.StageStarted, Total: 4})
	_ = sink.RecordProgress(coremetrics.ProgressEvent{Stage: coremetrics.StageFinished, Done: 1, Total: 4})

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.active))
	assert.Equal(t, 0.25, testutil.ToFloat64(sink.progress))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordCheckup(checkupEvent()))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.checkups.WithLabelValues("calendar")))
}
