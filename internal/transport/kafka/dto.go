package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/service/events"
)

// EventDTO is the wire form of a dispatch status event
type EventDTO struct {
	EventID    string    `json:"event_id"`
	DispatchID string    `json:"dispatch_id"`
	Status     string    `json:"status"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToDomain converts EventDTO to events.Event
func ToDomain(dto EventDTO) (events.Event, error) {
	raw := strings.TrimSpace(dto.DispatchID)
	if raw == "" {
		return events.Event{}, Permanent(fmt.Errorf("empty dispatch_id"))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return events.Event{}, Permanent(fmt.Errorf("dispatch_id %q: %w", raw, err))
	}
	return events.Event{
		EventID:    strings.TrimSpace(dto.EventID),
		DispatchID: id,
		Status:     strings.TrimSpace(dto.Status),
		Actor:      strings.TrimSpace(dto.Actor),
		OccurredAt: dto.OccurredAt,
	}, nil
}
