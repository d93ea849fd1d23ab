// Package cli implements the dispatch-health operator command: detect and
// optionally repair status inconsistencies per tenant.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/service/reconcile"
)

// Output formats.
const (
	FormatSummary  = "summary"
	FormatDetailed = "detailed"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

var formats = []string{FormatSummary, FormatDetailed, FormatJSON, FormatYAML}

// Reconciler is the reconciliation engine the command drives.
type Reconciler interface {
	Tenants(ctx context.Context) ([]domain.Tenant, error)
	Detect(ctx context.Context, tenantID uuid.UUID) (domain.Report, error)
	Fix(ctx context.Context, tenantID uuid.UUID, report *domain.Report, dryRun bool) (domain.FixResult, error)
}

// ServiceFactory returns the engine for a conflict policy. It is called once,
// after flags are parsed, so --help never touches the database.
type ServiceFactory func(policy reconcile.Policy) (Reconciler, error)

// ErrTenantsFailed is returned when at least one tenant could not be checked.
var ErrTenantsFailed = errors.New("some tenants failed")

type options struct {
	tenantID    string
	allTenants  bool
	fix         bool
	dryRun      bool
	format      string
	policy      string
	concurrency int
}

// NewHealthCommand builds the dispatch-health root command.
func NewHealthCommand(factory ServiceFactory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "dispatch-health",
		Short: "Check and fix dispatch system health issues",
		Example: `  dispatch-health --tenant-id=<id>
  dispatch-health --all-tenants --output-format=json
  dispatch-health --all-tenants --fix --dry-run=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd, factory, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.tenantID, "tenant-id", "", "check a specific tenant by ID")
	f.BoolVar(&opts.allTenants, "all-tenants", false, "check all active tenants")
	f.BoolVar(&opts.fix, "fix", false, "attempt to fix detected issues")
	f.BoolVar(&opts.dryRun, "dry-run", true, "plan fixes without changing anything")
	f.StringVar(&opts.format, "output-format", FormatSummary, "output format: "+strings.Join(formats, "|"))
	f.StringVar(&opts.policy, "conflict-policy", string(reconcile.PolicyNewest), "resource conflict policy: newest|in_progress")
	f.IntVar(&opts.concurrency, "concurrency", 4, "tenants checked in parallel")
	cmd.MarkFlagsMutuallyExclusive("tenant-id", "all-tenants")

	return cmd
}

func (o *options) validate() (reconcile.Policy, error) {
	if o.tenantID == "" && !o.allTenants {
		return "", errors.New("must specify either --tenant-id or --all-tenants")
	}
	if !slices.Contains(formats, o.format) {
		return "", fmt.Errorf("unknown output format %q", o.format)
	}
	if o.concurrency < 1 {
		return "", fmt.Errorf("concurrency must be positive, got %d", o.concurrency)
	}
	return reconcile.ParsePolicy(o.policy)
}

func runHealth(cmd *cobra.Command, factory ServiceFactory, opts *options) error {
	policy, err := opts.validate()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := factory(policy)
	if err != nil {
		return err
	}

	tenants, err := selectTenants(ctx, svc, opts)
	if err != nil {
		return err
	}

	r := newRenderer(cmd.OutOrStdout(), opts)
	if len(tenants) == 0 {
		r.noTenants()
		return nil
	}

	results := checkTenants(ctx, svc, tenants, opts)
	if err := r.render(results); err != nil {
		return err
	}

	if results.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTenantsFailed, results.Failed, results.TenantsChecked)
	}
	return nil
}

func selectTenants(ctx context.Context, svc Reconciler, opts *options) ([]domain.Tenant, error) {
	var want uuid.UUID
	if opts.tenantID != "" {
		id, err := uuid.Parse(opts.tenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid --tenant-id %q: %w", opts.tenantID, err)
		}
		want = id
	}

	all, err := svc.Tenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	if opts.allTenants {
		return all, nil
	}

	i := slices.IndexFunc(all, func(t domain.Tenant) bool { return t.ID == want })
	if i < 0 {
		return nil, fmt.Errorf("tenant with ID %s not found", want)
	}
	return all[i : i+1], nil
}

// checkTenants runs detection (and fixing) concurrently. A failing tenant is
// recorded and does not stop the others.
func checkTenants(ctx context.Context, svc Reconciler, tenants []domain.Tenant, opts *options) Results {
	out := make([]TenantResult, len(tenants))

	var g errgroup.Group
	g.SetLimit(opts.concurrency)
	for i, t := range tenants {
		g.Go(func() error {
			out[i] = checkTenant(ctx, svc, t, opts)
			return nil
		})
	}
	_ = g.Wait()

	res := Results{TenantsChecked: len(tenants), Tenants: out, Fix: opts.fix, DryRun: opts.dryRun}
	for _, tr := range out {
		if tr.Error != "" {
			res.Failed++
		}
		res.TotalIssues += tr.IssuesFound
		res.CriticalIssues += tr.CriticalIssues
		if tr.FixResult != nil {
			res.FixesApplied += tr.FixResult.Summary.Successful
			res.FixesFailed += tr.FixResult.Summary.Failed
		}
	}
	return res
}

func checkTenant(ctx context.Context, svc Reconciler, t domain.Tenant, opts *options) TenantResult {
	tr := TenantResult{TenantID: t.ID, TenantName: t.Name}

	report, err := svc.Detect(ctx, t.ID)
	if err != nil {
		tr.Error = fmt.Sprintf("detect: %v", err)
		return tr
	}
	tr.Report = &report
	tr.IssuesFound = report.TotalIssues()
	tr.CriticalIssues = report.CriticalIssues()

	if !opts.fix || tr.IssuesFound == 0 {
		return tr
	}
	fix, err := svc.Fix(ctx, t.ID, &report, opts.dryRun)
	if err != nil {
		tr.Error = fmt.Sprintf("fix: %v", err)
		return tr
	}
	tr.FixResult = &fix
	return tr
}
