package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a status event reported by the driver app or a partner integration.
type Event struct {
	EventID    string
	DispatchID uuid.UUID
	Status     string
	Actor      string
	OccurredAt time.Time
}
