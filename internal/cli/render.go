package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"trucking-dispatch-core/internal/domain"
)

// detailLimit caps how many findings per category the detailed format prints.
const detailLimit = 5

// TenantResult is the outcome of checking one tenant.
type TenantResult struct {
	TenantID       uuid.UUID         `json:"tenant_id" yaml:"tenant_id"`
	TenantName     string            `json:"tenant_name" yaml:"tenant_name"`
	IssuesFound    int               `json:"issues_found" yaml:"issues_found"`
	CriticalIssues int               `json:"critical_issues" yaml:"critical_issues"`
	Report         *domain.Report    `json:"inconsistencies,omitempty" yaml:"inconsistencies,omitempty"`
	FixResult      *domain.FixResult `json:"fix,omitempty" yaml:"fix,omitempty"`
	Error          string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Results aggregates a run across tenants.
type Results struct {
	TenantsChecked int            `json:"tenants_checked" yaml:"tenants_checked"`
	TotalIssues    int            `json:"total_issues" yaml:"total_issues"`
	CriticalIssues int            `json:"critical_issues" yaml:"critical_issues"`
	Fix            bool           `json:"fix" yaml:"fix"`
	DryRun         bool           `json:"dry_run" yaml:"dry_run"`
	FixesApplied   int            `json:"fixes_applied" yaml:"fixes_applied"`
	FixesFailed    int            `json:"fixes_failed" yaml:"fixes_failed"`
	Failed         int            `json:"tenants_failed" yaml:"tenants_failed"`
	Tenants        []TenantResult `json:"tenant_results" yaml:"tenant_results"`
}

type renderer struct {
	w    io.Writer
	opts *options
}

func newRenderer(w io.Writer, opts *options) *renderer {
	return &renderer{w: w, opts: opts}
}

func (r *renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) noTenants() {
	switch r.opts.format {
	case FormatJSON, FormatYAML:
		_ = r.render(Results{Tenants: []TenantResult{}})
	default:
		r.printf("No tenants found to check\n")
	}
}

func (r *renderer) render(res Results) error {
	switch r.opts.format {
	case FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	for _, tr := range res.Tenants {
		r.tenant(tr)
	}
	r.overall(res)
	return nil
}

func (r *renderer) rule() { r.printf("%s\n", strings.Repeat("=", 60)) }

func (r *renderer) tenant(tr TenantResult) {
	r.printf("\n")
	r.rule()
	r.printf("Checking tenant: %s (ID: %s)\n", tr.TenantName, tr.TenantID)
	r.rule()

	if tr.Report == nil {
		r.printf("Error detecting issues: %s\n", tr.Error)
		return
	}

	if tr.IssuesFound == 0 {
		r.printf("No issues detected! Dispatch system is healthy.\n")
	} else {
		r.printf("Found %d issues (%d critical)\n", tr.IssuesFound, tr.CriticalIssues)
		if r.opts.format == FormatDetailed {
			r.detailedIssues(*tr.Report)
		} else {
			r.summaryIssues(*tr.Report)
		}
	}

	if !r.opts.fix || tr.IssuesFound == 0 {
		return
	}
	r.printf("\nAttempting to fix issues...\n")
	if r.opts.dryRun {
		r.printf("Running in DRY-RUN mode - no changes will be made\n")
	}
	if tr.FixResult == nil {
		r.printf("Error fixing issues: %s\n", tr.Error)
		return
	}

	s := tr.FixResult.Summary
	if s.Successful > 0 {
		verb := "applied"
		if tr.FixResult.DryRun {
			verb = "planned"
		}
		r.printf("Successfully %s %d fixes\n", verb, s.Successful)
	}
	if s.Failed > 0 {
		r.printf("%d fixes failed\n", s.Failed)
	}
	if s.Skipped > 0 {
		r.printf("%d fixes skipped\n", s.Skipped)
	}
	if r.opts.format == FormatDetailed {
		r.fixDetails(*tr.FixResult)
	}
}

func (r *renderer) summaryIssues(rep domain.Report) {
	lines := []struct {
		n    int
		text string
	}{
		{len(rep.OrderMismatches), "dispatch-order status mismatches"},
		{len(rep.TripMismatches), "dispatch-trip status mismatches"},
		{len(rep.ResourceMismatches), "assignment-resource status mismatches"},
		{len(rep.Orphaned), "orphaned assignments"},
		{len(rep.ResourceConflicts), "CRITICAL resource conflicts"},
	}
	for _, l := range lines {
		if l.n > 0 {
			r.printf("  * %d %s\n", l.n, l.text)
		}
	}
}

func (r *renderer) detailedIssues(rep domain.Report) {
	detailCategory(r, "Dispatch Order Mismatches", rep.OrderMismatches)
	detailCategory(r, "Dispatch Trip Mismatches", rep.TripMismatches)
	detailCategory(r, "Assignment Resource Mismatches", rep.ResourceMismatches)
	detailCategory(r, "Orphaned Assignments", rep.Orphaned)
	detailCategory(r, "Resource Conflicts", rep.ResourceConflicts)
}

func detailCategory[T any](r *renderer, title string, items []T) {
	if len(items) == 0 {
		return
	}
	r.printf("\n%s:\n", title)
	for _, it := range items[:min(len(items), detailLimit)] {
		b, err := json.MarshalIndent(it, "    ", "  ")
		if err != nil {
			r.printf("  - %+v\n", it)
			continue
		}
		r.printf("  - %s\n", b)
	}
	if len(items) > detailLimit {
		r.printf("  ... and %d more\n", len(items)-detailLimit)
	}
}

func (r *renderer) fixDetails(fr domain.FixResult) {
	r.printf("\nFix Details:\n")
	for _, f := range fr.Applied {
		r.printf("  OK   %s: %s\n", f.Category, f.Action)
	}
	for _, f := range fr.Skipped {
		r.printf("  SKIP %s: %s\n", f.Category, f.Action)
	}
	for _, f := range fr.Failed {
		r.printf("  FAIL %s: %s\n", f.Category, f.Error)
	}
}

func (r *renderer) overall(res Results) {
	r.printf("\n")
	r.rule()
	r.printf("OVERALL SUMMARY\n")
	r.rule()
	r.printf("Tenants checked: %d\n", res.TenantsChecked)
	if res.Failed > 0 {
		r.printf("Tenants failed: %d\n", res.Failed)
	}
	r.printf("Total issues found: %d\n", res.TotalIssues)
	r.printf("Critical issues: %d\n", res.CriticalIssues)
	if res.Fix {
		r.printf("Fixes applied: %d\n", res.FixesApplied)
	}

	switch {
	case res.TotalIssues == 0 && res.Failed == 0:
		r.printf("\nAll dispatch systems are healthy!\n")
	case res.CriticalIssues > 0:
		r.printf("\nATTENTION: %d critical issues require immediate attention\n", res.CriticalIssues)
	}
}
