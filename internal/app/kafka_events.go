package app

import (
	"context"
	"time"

	"trucking-dispatch-core/internal/service/events"
	"trucking-dispatch-core/internal/transport/kafka"
)

// eventHandler is the part of events.Processor the consumer drives.
type eventHandler interface {
	Handle(ctx context.Context, e events.Event) error
}

// makeStatusEventsKafka bounds each event by timeout so one stuck row lock
// cannot stall the partition.
func makeStatusEventsKafka(p eventHandler, timeout time.Duration) kafka.HandleFunc {
	return func(ctx context.Context, event events.Event) error {
		if timeout <= 0 {
			return p.Handle(ctx, event)
		}
		evCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return p.Handle(evCtx, event)
	}
}
