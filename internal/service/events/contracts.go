//go:generate mockgen -source=contracts.go -destination=events_mocks_test.go -package=events_test

package events

import (
	"context"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/service/dispatch"
)

// StatusChanger is the dispatch operation a status event drives.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, in dispatch.ChangeStatusInput) (domain.StatusChangeResult, error)
}
