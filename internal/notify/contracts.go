//go:generate mockgen -source=contracts.go -destination=notify_mocks_test.go -package=notify_test

package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

// Outbox is the notification outbox table.
type Outbox interface {
	ListPendingNotifications(ctx context.Context, limit, maxAttempts int) ([]domain.Notification, error)
	MarkNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Publisher delivers one notification to the broker.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}
