package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/cellage/core/metrics"
	"github.com/kilianp07/cellage/internal/eventbus"
)

// StartEventCollector forwards progress events from the bus to sink when it
// records progress. It stops when ctx is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.ProgressEvent], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.ProgressRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordProgress(ev)
			}
		}
	}()
}
