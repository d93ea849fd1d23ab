package events

import (
	"context"
	"errors"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/service/dispatch"
)

// DefaultActor is recorded when an event does not name who changed the status.
const DefaultActor = "driver_app"

// Processor turns status events into dispatch status changes.
type Processor struct {
	dispatch StatusChanger
	factory  *statusFactory
	logger   logx.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(svc StatusChanger, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Processor{
		dispatch: svc,
		factory:  newStatusFactory(),
		logger:   logger,
	}
}

// Handle applies a single event. Events the dispatch rejects (unknown dispatch,
// unreachable status, busy resources) are dropped; only infrastructure failures
// are returned so the consumer redelivers the message.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	status, ok := p.factory.get(e.Status)
	if !ok {
		p.logger.Debug("status event ignored",
			logx.String("event_id", e.EventID),
			logx.String("status", e.Status),
		)
		return nil
	}

	actor := e.Actor
	if actor == "" {
		actor = DefaultActor
	}

	_, err := p.dispatch.ChangeStatus(ctx, dispatch.ChangeStatusInput{
		DispatchID: e.DispatchID,
		Status:     status,
		Actor:      actor,
	})
	if err == nil || apperr.IsRetryable(err) {
		return err
	}
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrInvalid) {
		p.logger.Warn("status event dropped",
			logx.String("event", "status_event_dropped"),
			logx.String("event_id", e.EventID),
			logx.String("dispatch_id", e.DispatchID.String()),
			logx.String("status", string(status)),
			logx.Err(err),
		)
		return nil
	}
	return err
}
