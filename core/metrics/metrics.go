package metrics

import (
	"time"

	"github.com/kilianp07/cellage/core/battery"
)

// CheckupEvent is emitted after every check-up of an experiment run.
type CheckupEvent struct {
	RunID     string
	Condition string
	AgeType   string
	// Index counts check-ups from 1.
	Index        int
	Time         time.Time
	CapRemaining float64
	MeasuredAh   float64
	Aging        battery.AgingState
}

// MetricsSink records check-up results for observability purposes.
type MetricsSink interface {
	RecordCheckup(ev CheckupEvent) error
}

// Run outcomes reported in RunEvent.Status.
const (
	RunCompleted = "completed"
	RunEndOfLife = "end_of_life"
	RunFailed    = "failed"
	RunCanceled  = "canceled"
)

// RunEvent summarises a finished experiment run.
type RunEvent struct {
	RunID        string
	Condition    string
	AgeType      string
	Status       string
	Checkups     int
	CapRemaining float64
	// Simulated is the span of simulated time, Wall the time spent computing it.
	Simulated time.Duration
	Wall      time.Duration
	Error     string
	Time      time.Time
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordCheckup(CheckupEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error         { return nil }

// Progress stages reported in ProgressEvent.Stage.
const (
	StageStarted  = "started"
	StageCheckup  = "checkup"
	StageFinished = "finished"
)

// ProgressEvent is published on the event bus while a batch runs. Events
// may be dropped by slow subscribers, so it is only used for live views.
type ProgressEvent struct {
	RunID     string
	Condition string
	AgeType   string
	Stage     string
	// Done and Total count finished runs in the batch.
	Done  int
	Total int
	Time  time.Time
}

// ProgressRecorder consumes progress events.
type ProgressRecorder interface {
	RecordProgress(ev ProgressEvent) error
}
