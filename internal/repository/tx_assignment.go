package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

const assignmentColumns = `
	a.id, a.tenant_id, a.driver_id, a.truck_id, a.carrier_id, a.dispatch_id,
	a.start_date, a.end_date, a.status, a.is_active, a.created_at, a.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row scanner, a *domain.Assignment) error {
	return row.Scan(&a.ID, &a.TenantID, &a.DriverID, &a.TruckID, &a.CarrierID, &a.DispatchID,
		&a.StartDate, &a.EndDate, &a.Status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
}

// LockDispatchAssignments - lock the dispatch's active assignments in id order.
func (r *TxRepo) LockDispatchAssignments(ctx context.Context, dispatchID uuid.UUID) ([]domain.Assignment, error) {
	rows, err := r.tx.Query(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments a
        WHERE a.dispatch_id = $1 AND a.is_active
        ORDER BY a.id
        FOR UPDATE
    `, dispatchID)
	if err != nil {
		return nil, wrapf(err, "lock assignments of dispatch %s", dispatchID)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "lock assignments of dispatch %s", dispatchID)
	}
	return out, nil
}

// LockAssignment - select assignment for update.
func (r *TxRepo) LockAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1 FOR UPDATE`, id)

	var a domain.Assignment
	if err := scanAssignment(row, &a); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "lock assignment %s", id)
	}
	return &a, nil
}

// InsertAssignment - insert a new assignment. A nil id is generated.
func (r *TxRepo) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.tx.Exec(ctx, `
        INSERT INTO assignments (id, tenant_id, driver_id, truck_id, carrier_id, dispatch_id,
                                 start_date, end_date, status, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, a.ID, a.TenantID, a.DriverID, a.TruckID, a.CarrierID, a.DispatchID,
		a.StartDate, a.EndDate, string(a.Status), a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return wrapf(err, "insert assignment")
	}
	return nil
}

// UpdateAssignment - update assignment status and window.
func (r *TxRepo) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status = $2, start_date = $3, end_date = $4, is_active = $5, updated_at = $6
        WHERE id = $1
    `, a.ID, string(a.Status), a.StartDate, a.EndDate, a.IsActive, a.UpdatedAt)
	if err != nil {
		return wrapf(err, "update assignment %s", a.ID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s not found", a.ID)
	}
	return nil
}

func resourceColumn(kind domain.ResourceKind) (string, error) {
	switch kind {
	case domain.ResourceDriver:
		return "driver_id", nil
	case domain.ResourceTruck:
		return "truck_id", nil
	}
	return "", fmt.Errorf("unknown resource kind %q", kind)
}

// FindConflictingAssignment - earliest created active assignment overlapping the window.
func (r *TxRepo) FindConflictingAssignment(ctx context.Context, q domain.ConflictQuery) (*domain.Assignment, error) {
	col, err := resourceColumn(q.Kind)
	if err != nil {
		return nil, err
	}

	// [start, end) с открытым концом при NULL
	row := r.tx.QueryRow(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments a
        WHERE a.`+col+` = $1
          AND a.is_active
          AND a.status IN ('assigned', 'on_duty')
          AND ($2::uuid IS NULL OR a.id <> $2)
          AND ($4::timestamptz IS NULL OR a.start_date < $4)
          AND (a.end_date IS NULL OR a.end_date > $3)
        ORDER BY a.created_at, a.id
        LIMIT 1
    `, q.ResourceID, q.ExcludeID, q.Start, q.End)

	var a domain.Assignment
	if err := scanAssignment(row, &a); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "find conflicting %s assignment", q.Kind)
	}
	return &a, nil
}

// CountActiveAssignments - number of active assignments holding the resource.
func (r *TxRepo) CountActiveAssignments(ctx context.Context, kind domain.ResourceKind, resourceID uuid.UUID) (int, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return 0, err
	}

	var n int
	err = r.tx.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM assignments
        WHERE `+col+` = $1 AND is_active AND status IN ('assigned', 'on_duty')
    `, resourceID).Scan(&n)
	if err != nil {
		return 0, wrapf(err, "count active %s assignments", kind)
	}
	return n, nil
}
