package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

// ListTenants returns the active tenants.
func (s *Store) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, is_active FROM tenants WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListDispatchLinks returns the tenant's active dispatches joined with order and trip statuses.
func (s *Store) ListDispatchLinks(ctx context.Context, tenantID uuid.UUID) ([]domain.DispatchLink, error) {
	rows, err := s.db.Query(ctx, `
        SELECT d.id, d.number, d.status, o.id, o.status, t.id, COALESCE(t.status, '')
        FROM dispatches d
        JOIN orders o ON o.id = d.order_id
        LEFT JOIN trips t ON t.id = d.trip_id
        WHERE d.tenant_id = $1 AND d.is_active
        ORDER BY d.id
    `, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list dispatch links: %w", err)
	}
	defer rows.Close()

	var out []domain.DispatchLink
	for rows.Next() {
		var l domain.DispatchLink
		if err := rows.Scan(&l.DispatchID, &l.DispatchNumber, &l.DispatchStatus,
			&l.OrderID, &l.OrderStatus, &l.TripID, &l.TripStatus); err != nil {
			return nil, fmt.Errorf("scan dispatch link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListActiveAssignments returns the tenant's active assignments with driver and truck duty statuses.
func (s *Store) ListActiveAssignments(ctx context.Context, tenantID uuid.UUID) ([]domain.AssignmentView, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+assignmentColumns+`, dr.duty_status, tr.duty_status
        FROM assignments a
        JOIN drivers dr ON dr.id = a.driver_id
        JOIN trucks tr ON tr.id = a.truck_id
        WHERE a.tenant_id = $1 AND a.is_active AND a.status IN ('assigned', 'on_duty')
        ORDER BY a.id
    `, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.AssignmentView
	for rows.Next() {
		var v domain.AssignmentView
		a := &v.Assignment
		if err := rows.Scan(&a.ID, &a.TenantID, &a.DriverID, &a.TruckID, &a.CarrierID, &a.DispatchID,
			&a.StartDate, &a.EndDate, &a.Status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
			&v.DriverDuty, &v.TruckDuty); err != nil {
			return nil, fmt.Errorf("scan assignment view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
