package events

import (
	"strings"

	"trucking-dispatch-core/internal/domain"
)

type statusFactory struct {
	byStatus map[string]domain.DispatchStatus
}

func newStatusFactory() *statusFactory {
	f := &statusFactory{
		byStatus: map[string]domain.DispatchStatus{
			// события мобильного приложения водителя
			"accepted":  domain.DispatchAssigned,
			"picked_up": domain.DispatchInTransit,
			"departed":  domain.DispatchInTransit,
			"arrived":   domain.DispatchDelivered,
			"canceled":  domain.DispatchCancelled,
		},
	}
	for _, s := range []domain.DispatchStatus{
		domain.DispatchAssigned, domain.DispatchInTransit, domain.DispatchDelivered,
		domain.DispatchInvoiced, domain.DispatchPaymentReceived, domain.DispatchCompleted,
		domain.DispatchCancelled,
	} {
		f.byStatus[string(s)] = s
	}
	return f
}

func (f *statusFactory) get(status string) (domain.DispatchStatus, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	s, ok := f.byStatus[status]
	return s, ok
}
