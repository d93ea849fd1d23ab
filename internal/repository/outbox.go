package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

// ListPendingNotifications returns unsent outbox rows with fewer than maxAttempts
// publish attempts, oldest first.
func (s *Store) ListPendingNotifications(ctx context.Context, limit, maxAttempts int) ([]domain.Notification, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, tenant_id, entity_kind, entity_id, old_status, new_status, priority,
               title, message, created_at, attempts, last_error
        FROM notifications
        WHERE sent_at IS NULL AND attempts < $2
        ORDER BY created_at, id
        LIMIT $1
    `, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Ref.Kind, &n.Ref.ID, &n.OldStatus, &n.NewStatus,
			&n.Priority, &n.Title, &n.Message, &n.CreatedAt, &n.Attempts, &n.LastError); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationSent stamps sent_at and counts the attempt.
func (s *Store) MarkNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
        UPDATE notifications SET sent_at = $2, attempts = attempts + 1, last_error = '' WHERE id = $1
    `, id, at)
	if err != nil {
		return fmt.Errorf("mark notification %s sent: %w", id, err)
	}
	return nil
}

// MarkNotificationFailed counts the attempt and keeps the publish error.
func (s *Store) MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.db.Exec(ctx, `
        UPDATE notifications SET attempts = attempts + 1, last_error = $2 WHERE id = $1
    `, id, reason)
	if err != nil {
		return fmt.Errorf("mark notification %s failed: %w", id, err)
	}
	return nil
}
