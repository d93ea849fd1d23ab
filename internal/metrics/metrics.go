package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trucking-dispatch-core/internal/domain"
)

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// Dispatch groups the dispatch core metrics. All methods are safe on a nil receiver.
type Dispatch struct {
	Transitions        *prometheus.CounterVec
	SyncFailures       prometheus.Counter
	SinkWarnings       prometheus.Counter
	AvailabilityChecks *prometheus.CounterVec
	LockWait           prometheus.Histogram
	ReconcileIssues    *prometheus.GaugeVec
	ReconcileFixes     *prometheus.CounterVec
	OutboxPublished    *prometheus.CounterVec
}

// NewDispatch creates unregistered dispatch metrics.
func NewDispatch() *Dispatch {
	return &Dispatch{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_status_transitions_total",
			Help: "Applied status transitions by entity kind and target status",
		}, []string{"kind", "to"}),
		SyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_sync_failures_total",
			Help: "Dispatch status changes rolled back because propagation failed",
		}),
		SinkWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_sink_warnings_total",
			Help: "History or notification writes that failed without rolling back the transition",
		}),
		AvailabilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_availability_checks_total",
			Help: "Resource availability checks by result",
		}, []string{"result"}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_resource_lock_wait_seconds",
			Help:    "Time spent acquiring driver and truck row locks",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ReconcileIssues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_reconcile_issues",
			Help: "Issues found by the last detection pass by category",
		}, []string{"category"}),
		ReconcileFixes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_reconcile_fixes_total",
			Help: "Reconciliation fixes by category and outcome",
		}, []string{"category", "outcome"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_notifications_published_total",
			Help: "Outbox notifications relayed to the broker by outcome",
		}, []string{"outcome"}),
	}
}

// Register registers every collector with reg.
func (m *Dispatch) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Transitions, m.SyncFailures, m.SinkWarnings, m.AvailabilityChecks,
		m.LockWait, m.ReconcileIssues, m.ReconcileFixes, m.OutboxPublished,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveTransition counts an applied transition.
func (m *Dispatch) ObserveTransition(t domain.Transition) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(string(t.Ref.Kind), t.To).Inc()
}

// ObserveSyncFailure counts a rolled back dispatch status change.
func (m *Dispatch) ObserveSyncFailure() {
	if m == nil {
		return
	}
	m.SyncFailures.Inc()
}

// ObserveSinkWarning counts a non-fatal sink failure.
func (m *Dispatch) ObserveSinkWarning() {
	if m == nil {
		return
	}
	m.SinkWarnings.Inc()
}

// ObserveAvailability counts an availability check by result.
func (m *Dispatch) ObserveAvailability(result string) {
	if m == nil {
		return
	}
	m.AvailabilityChecks.WithLabelValues(result).Inc()
}

// ObserveLockWait records how long the driver and truck locks took.
func (m *Dispatch) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
}

// ObserveReport publishes the per-category issue counts of a detection pass.
func (m *Dispatch) ObserveReport(r domain.Report) {
	if m == nil {
		return
	}
	for category, n := range r.Counts() {
		m.ReconcileIssues.WithLabelValues(string(category)).Set(float64(n))
	}
}

// ObserveFix counts one fix outcome (applied, failed, skipped, planned).
func (m *Dispatch) ObserveFix(category domain.IssueCategory, outcome string) {
	if m == nil {
		return
	}
	m.ReconcileFixes.WithLabelValues(string(category), outcome).Inc()
}

// ObservePublish counts one relayed notification (sent, failed).
func (m *Dispatch) ObservePublish(outcome string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(outcome).Inc()
}
