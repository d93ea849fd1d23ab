//go:generate mockgen -source=contracts.go -destination=resourcelock_mocks_test.go -package=resourcelock_test

package resourcelock

import (
	"context"

	"github.com/google/uuid"
)

// Qualifier answers fleet qualification questions for a driver/truck pair.
type Qualifier interface {
	IsDriverQualifiedForTruck(ctx context.Context, driverID, truckID uuid.UUID) (bool, string, error)
	IsDriverLicenseValid(ctx context.Context, driverID uuid.UUID) (bool, error)
}
