package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trucking-dispatch-core/internal/domain"
)

// savepoint runs fn inside a nested transaction so its failure leaves the outer one usable.
func (r *TxRepo) savepoint(ctx context.Context, fn func(tx pgx.Tx) error) error {
	sp, err := r.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback to savepoint: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// InsertStatusHistory - append a history row.
func (r *TxRepo) InsertStatusHistory(ctx context.Context, h *domain.StatusHistory) error {
	metadata := h.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return r.savepoint(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO status_history (tenant_id, entity_kind, entity_id, old_status, new_status,
                                        actor, changed_at, metadata)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING id
        `, h.TenantID, string(h.Ref.Kind), h.Ref.ID, h.OldStatus, h.NewStatus,
			h.Actor, h.ChangedAt, metadata).Scan(&h.ID)
		if err != nil {
			return fmt.Errorf("insert status history for %s: %w", h.Ref, err)
		}
		return nil
	})
}

// EnqueueNotification - insert an outbox row.
func (r *TxRepo) EnqueueNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.savepoint(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO notifications (id, tenant_id, entity_kind, entity_id, old_status, new_status,
                                       priority, title, message, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        `, n.ID, n.TenantID, string(n.Ref.Kind), n.Ref.ID, n.OldStatus, n.NewStatus,
			string(n.Priority), n.Title, n.Message, n.CreatedAt)
		if err != nil {
			return fmt.Errorf("enqueue notification for %s: %w", n.Ref, err)
		}
		return nil
	})
}
