// Package reconcile detects entities whose status disagrees with their dispatch,
// and double-booked drivers and trucks, and repairs them.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// Source is the actor recorded on repairs.
const Source = "reconciliation"

// Service is the reconciliation engine.
type Service struct {
	runner  dispatchtx.Runner
	reader  Reader
	emit    emitter
	cache   ReportCache
	policy  Policy
	logger  logx.Logger
	metrics *metrics.Dispatch
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the report cache.
func WithCache(c ReportCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPolicy sets the conflict policy.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a reconciliation Service. m may be nil.
func NewService(runner dispatchtx.Runner, reader Reader, emit emitter, logger logx.Logger, m *metrics.Dispatch, opts ...Option) *Service {
	s := &Service{
		runner:  runner,
		reader:  reader,
		emit:    emit,
		policy:  PolicyNewest,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured conflict policy.
func (s *Service) Policy() Policy { return s.policy }

// Tenants lists the active tenants.
func (s *Service) Tenants(ctx context.Context) ([]domain.Tenant, error) {
	return s.reader.ListTenants(ctx)
}

// Detect scans one tenant and returns the inconsistencies found.
func (s *Service) Detect(ctx context.Context, tenantID uuid.UUID) (domain.Report, error) {
	var (
		links []domain.DispatchLink
		views []domain.AssignmentView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		links, err = s.reader.ListDispatchLinks(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("list dispatch links: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		views, err = s.reader.ListActiveAssignments(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("list active assignments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Report{}, err
	}

	report := BuildReport(tenantID, s.now(), links, views)
	s.metrics.ObserveReport(report)

	if s.cache != nil {
		if err := s.cache.Put(ctx, report); err != nil {
			s.logger.Warn("report cache put failed", logx.Stringer("tenant_id", tenantID), logx.Err(err))
		}
	}

	s.logger.Info("inconsistencies detected",
		logx.String("event", "reconcile_detected"),
		logx.Stringer("tenant_id", tenantID),
		logx.Int("total_issues", report.TotalIssues()),
		logx.Int("critical_issues", report.CriticalIssues()),
	)
	return report, nil
}

// Fix repairs the issues of report. A nil report is taken from the cache or
// detected afresh. Each repair runs in its own transaction; failures are
// collected in the result and do not stop the pass.
func (s *Service) Fix(ctx context.Context, tenantID uuid.UUID, report *domain.Report, dryRun bool) (domain.FixResult, error) {
	if report == nil {
		r, err := s.loadReport(ctx, tenantID)
		if err != nil {
			return domain.FixResult{}, err
		}
		report = &r
	}

	res := domain.FixResult{
		TenantID: tenantID,
		DryRun:   dryRun,
		Summary:  domain.FixSummary{ByCategory: map[domain.IssueCategory]int{}},
	}

	for _, m := range report.OrderMismatches {
		s.record(&res, s.fixOrder(ctx, m, dryRun))
	}
	for _, m := range report.TripMismatches {
		s.record(&res, s.fixTrip(ctx, m, dryRun))
	}
	for _, c := range report.ResourceConflicts {
		s.record(&res, s.fixConflict(ctx, c, dryRun))
	}

	res.Summary.Successful = len(res.Applied)
	res.Summary.Failed = len(res.Failed)
	res.Summary.Skipped = len(res.Skipped)
	res.Summary.Attempted = res.Summary.Successful + res.Summary.Failed
	res.Summary.CriticalIssues = report.CriticalIssues()
	res.FixedAt = s.now()

	if !dryRun && s.cache != nil {
		if err := s.cache.Invalidate(ctx, tenantID); err != nil {
			s.logger.Warn("report cache invalidate failed", logx.Stringer("tenant_id", tenantID), logx.Err(err))
		}
	}

	s.logger.Info("inconsistencies fixed",
		logx.String("event", "reconcile_fixed"),
		logx.Stringer("tenant_id", tenantID),
		logx.Bool("dry_run", dryRun),
		logx.Int("applied", res.Summary.Successful),
		logx.Int("failed", res.Summary.Failed),
		logx.Int("skipped", res.Summary.Skipped),
	)
	return res, nil
}

func (s *Service) loadReport(ctx context.Context, tenantID uuid.UUID) (domain.Report, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.logger.Warn("report cache get failed", logx.Stringer("tenant_id", tenantID), logx.Err(err))
		}
		if cached != nil {
			return *cached, nil
		}
	}
	return s.Detect(ctx, tenantID)
}

type outcome struct {
	domain.FixOutcome
	skipped bool
}

func (s *Service) record(res *domain.FixResult, o outcome) {
	label := "applied"
	switch {
	case o.Error != "":
		label = "failed"
		res.Failed = append(res.Failed, o.FixOutcome)
		s.logger.Warn("reconcile fix failed",
			logx.String("event", "reconcile_fix_failed"),
			logx.String("category", string(o.Category)),
			logx.String("error", o.Error),
		)
	case o.skipped:
		label = "skipped"
		res.Skipped = append(res.Skipped, o.FixOutcome)
	default:
		if res.DryRun {
			label = "planned"
		}
		res.Applied = append(res.Applied, o.FixOutcome)
	}
	if !o.skipped {
		res.Summary.ByCategory[o.Category]++
	}
	s.metrics.ObserveFix(o.Category, label)
}
