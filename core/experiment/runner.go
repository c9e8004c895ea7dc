package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/logger"
	"github.com/kilianp07/cellage/core/metrics"
	"github.com/kilianp07/cellage/core/monitoring"
	"github.com/kilianp07/cellage/core/results"
	"github.com/kilianp07/cellage/internal/eventbus"
)

// RunResult is the report of one condition.
type RunResult struct {
	RunID     string
	Condition Condition
	Outcome   Outcome
	Records   []results.Record
	Wall      time.Duration
	// Err is set for failed and canceled runs.
	Err error
}

// Runner simulates conditions concurrently. Runs share nothing but the
// store, the sink and the bus, which must be safe for concurrent use.
type Runner struct {
	params   battery.Parameters
	settings Settings
	store    results.Store
	sink     metrics.MetricsSink
	bus      *eventbus.TypedBus[metrics.ProgressEvent]
	log      logger.Logger
	newID    func() string
	clock    func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore persists every check-up record.
func WithStore(s results.Store) RunnerOption { return func(r *Runner) { r.store = s } }

// WithSink reports check-ups and run summaries.
func WithSink(s metrics.MetricsSink) RunnerOption { return func(r *Runner) { r.sink = s } }

// WithBus publishes progress events.
func WithBus(b *eventbus.TypedBus[metrics.ProgressEvent]) RunnerOption {
	return func(r *Runner) { r.bus = b }
}

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithIDs replaces the run ID generator.
func WithIDs(f func() string) RunnerOption { return func(r *Runner) { r.newID = f } }

// NewRunner returns a runner with an in-memory store and no sinks.
func NewRunner(p battery.Parameters, s Settings, opts ...RunnerOption) *Runner {
	r := &Runner{
		params:   p,
		settings: s,
		store:    results.NewMemoryStore(),
		sink:     metrics.NopSink{},
		log:      logger.NopLogger{},
		newID:    uuid.NewString,
		clock:    time.Now,
		cancels:  make(map[string]context.CancelFunc),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Cancel stops the run with the given ID. It reports whether the run was
// active.
func (r *Runner) Cancel(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[runID]
	if ok {
		cancel()
	}
	return ok
}

// CancelAll stops every active run.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
}

// Run simulates conds on at most Settings.Workers goroutines and returns
// one result per condition in input order. A failing or panicking run is
// reported in its RunResult and never stops the others. Run returns an
// error only for invalid settings or when ctx is canceled.
func (r *Runner) Run(ctx context.Context, conds []Condition) ([]RunResult, error) {
	if err := r.params.Validate(); err != nil {
		return nil, err
	}
	if err := r.settings.Validate(); err != nil {
		return nil, fmt.Errorf("experiment settings: %w", err)
	}
	out := make([]RunResult, len(conds))
	for i, c := range conds {
		out[i] = RunResult{RunID: r.newID(), Condition: c}
	}
	var done atomic.Int64
	total := len(conds)

	g := errgroup.Group{}
	g.SetLimit(r.settings.workers())
	for i := range out {
		if ctx.Err() != nil {
			for j := i; j < len(out); j++ {
				out[j].Outcome.Status = metrics.RunCanceled
				out[j].Err = ctx.Err()
			}
			break
		}
		res := &out[i]
		g.Go(func() error {
			r.runOne(ctx, res, &done, total)
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}

func (r *Runner) runOne(parent context.Context, res *RunResult, done *atomic.Int64, total int) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.cancels[res.RunID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.cancels, res.RunID)
		r.mu.Unlock()
		cancel()
	}()

	cond := res.Condition
	name := cond.Name()
	tags := map[string]string{"run_id": res.RunID, "condition": name, "age_type": string(cond.AgeType)}
	started := r.clock()
	r.progress(res, metrics.StageStarted, int(done.Load()), total)
	r.log.Infow("run started", map[string]any{"run_id": res.RunID, "condition": name})

	defer func() {
		if v := recover(); v != nil {
			monitoring.CapturePanic(v, tags)
			res.Err = monitoring.PanicError(v)
			res.Outcome.Status = metrics.RunFailed
		}
		res.Wall = r.clock().Sub(started)
		r.finish(res)
		r.progress(res, metrics.StageFinished, int(done.Add(1)), total)
	}()

	onCheckup := func(index int, cu battery.CheckupResult) error {
		rec := r.record(res, index, cu)
		if err := r.store.Append(context.WithoutCancel(ctx), rec); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		res.Records = append(res.Records, rec)
		if err := r.sink.RecordCheckup(metrics.CheckupEvent{
			RunID:        res.RunID,
			Condition:    name,
			AgeType:      string(cond.AgeType),
			Index:        index,
			Time:         cu.End,
			CapRemaining: cu.CapRemaining,
			MeasuredAh:   cu.MeasuredAh,
			Aging:        cu.Aging,
		}); err != nil {
			r.log.Warnf("run %s: record check-up %d: %v", res.RunID, index, err)
		}
		r.progress(res, metrics.StageCheckup, int(done.Load()), total)
		return nil
	}
	res.Outcome, res.Err = Simulate(ctx, r.params, r.settings, cond, onCheckup)
	if res.Err != nil && res.Outcome.Status == metrics.RunFailed {
		monitoring.CaptureException(res.Err, tags)
	}
}

func (r *Runner) record(res *RunResult, index int, cu battery.CheckupResult) results.Record {
	c := res.Condition
	socMin, socMax := c.SoCRange()
	return results.Record{
		RunID:        res.RunID,
		Condition:    c.Name(),
		AgeType:      string(c.AgeType),
		Temp:         c.Temp,
		SoCMin:       socMin,
		SoCMax:       socMax,
		IChg:         r.chargeCurrent(c),
		IDischg:      r.dischargeCurrent(c),
		Profile:      c.ProfileIndex,
		Index:        index,
		Time:         cu.End,
		CapRemaining: cu.CapRemaining,
		MeasuredAh:   cu.MeasuredAh,
		Aging:        cu.Aging,
	}
}

func (r *Runner) chargeCurrent(c Condition) float64 {
	if c.AgeType == Calendar {
		return r.settings.CalendarCurrents.IChg
	}
	return c.Currents.IChg
}

func (r *Runner) dischargeCurrent(c Condition) float64 {
	if c.AgeType == Calendar {
		return r.settings.CalendarCurrents.IDischg
	}
	return c.Currents.IDischg
}

func (r *Runner) finish(res *RunResult) {
	ev := metrics.RunEvent{
		RunID:        res.RunID,
		Condition:    res.Condition.Name(),
		AgeType:      string(res.Condition.AgeType),
		Status:       res.Outcome.Status,
		Checkups:     res.Outcome.Checkups,
		CapRemaining: res.Outcome.Final.CapRemaining,
		Wall:         res.Wall,
		Time:         r.clock(),
	}
	if !res.Outcome.End.IsZero() {
		ev.Simulated = res.Outcome.End.Sub(res.Outcome.Start)
	}
	fields := map[string]any{
		"run_id":    res.RunID,
		"condition": ev.Condition,
		"status":    ev.Status,
		"checkups":  ev.Checkups,
		"wall":      res.Wall.String(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
		fields["error"] = ev.Error
	}
	switch {
	case ev.Status == metrics.RunFailed:
		r.log.Errorf("run %s (%s) failed: %v", res.RunID, ev.Condition, res.Err)
	case errors.Is(res.Err, context.Canceled):
		r.log.Warnf("run %s (%s) canceled", res.RunID, ev.Condition)
	default:
		r.log.Infow("run finished", fields)
	}
	if rec, ok := r.sink.(metrics.RunRecorder); ok {
		if err := rec.RecordRun(ev); err != nil {
			r.log.Warnf("run %s: record summary: %v", res.RunID, err)
		}
	}
}

func (r *Runner) progress(res *RunResult, stage string, done, total int) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(metrics.ProgressEvent{
		RunID:     res.RunID,
		Condition: res.Condition.Name(),
		AgeType:   string(res.Condition.AgeType),
		Stage:     stage,
		Done:      done,
		Total:     total,
		Time:      r.clock(),
	})
}
