// Package history is the write-only sink for status transitions: one history row
// and one outbox notification per applied transition.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// Recorder writes history rows and outbox notifications inside the caller's transaction.
type Recorder struct {
	newID func() uuid.UUID
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{newID: uuid.New}
}

// RecordTransition appends the history row for t.
func (r *Recorder) RecordTransition(ctx context.Context, tx dispatchtx.Repository, t domain.Transition) error {
	h := domain.HistoryFromTransition(t)
	if err := tx.InsertStatusHistory(ctx, &h); err != nil {
		return &apperr.NotificationError{Ref: t.Ref, Op: "record history", Err: err}
	}
	return nil
}

// Notify enqueues the notification for t.
func (r *Recorder) Notify(ctx context.Context, tx dispatchtx.Repository, t domain.Transition) error {
	n := r.Build(t)
	if err := tx.EnqueueNotification(ctx, &n); err != nil {
		return &apperr.NotificationError{Ref: t.Ref, Op: "enqueue notification", Err: err}
	}
	return nil
}

// Build renders the notification for t.
func (r *Recorder) Build(t domain.Transition) domain.Notification {
	label := kindLabel(t.Ref.Kind)
	if number, ok := t.Metadata["number"].(string); ok && number != "" {
		label = fmt.Sprintf("%s %s", label, number)
	}
	return domain.Notification{
		ID:        r.newID(),
		TenantID:  t.TenantID,
		Ref:       t.Ref,
		OldStatus: t.From,
		NewStatus: t.To,
		Priority:  t.Priority(),
		Title:     fmt.Sprintf("%s status updated", kindLabel(t.Ref.Kind)),
		Message:   fmt.Sprintf("%s changed from %s to %s", label, humanize(t.From), humanize(t.To)),
		CreatedAt: t.At,
	}
}

func kindLabel(k domain.EntityKind) string {
	switch k {
	case domain.KindOrder:
		return "Order"
	case domain.KindTrip:
		return "Trip"
	case domain.KindDispatch:
		return "Dispatch"
	case domain.KindAssignment:
		return "Driver assignment"
	default:
		return string(k)
	}
}

func humanize(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
